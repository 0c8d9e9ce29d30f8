// Package models defines the CLI's locally cached records.
package models
