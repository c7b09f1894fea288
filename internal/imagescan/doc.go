// Package imagescan discovers PNG and JPEG files in a directory and reads
// their dimensions from the file headers without decoding pixel data.
package imagescan
