// SPDX-License-Identifier: MPL-2.0

// Package remote lists the buns published in a GitHub repository.
//
// The client pages through the repository contents API, pairs archives with
// their manifests by base name, and downloads only the manifests. Entries with
// a missing or malformed half are skipped. A failure after the first page
// yields a partial Listing instead of an error, so callers can still show what
// was found and report the rest through Listing.Err.
package remote
