// Package services orchestrates the dlsync workflows over the source,
// repository and parameter collaborators.
package services
