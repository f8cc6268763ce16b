// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bao command-line interface.
//
// The commands are thin wrappers: baking lives in pkg/oven, the local index in
// pkg/bakery and the remote listing in pkg/remote. This package loads the user
// configuration, wires loggers and HTTP clients into those packages and turns
// their errors into actionable messages.
package cmd
