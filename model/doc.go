// Package model defines the shared data types of the ingestion and
// retrieval pipeline: passages, indexed vectors, and search results.
package model
