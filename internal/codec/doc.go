// Package codec exports a repository as a portable catalog document and
// loads such documents back through the repository contract. Documents are
// written as JSON or YAML.
package codec
