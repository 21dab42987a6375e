// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store declares the durable store the vote core runs against.
// The db package provides the SQL implementation.
package store
