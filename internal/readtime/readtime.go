// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package readtime estimates how long a post takes to read.
package readtime

import "strings"

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// Estimate returns the reading time of content in whole minutes, rounded
// up. Words are whitespace-delimited tokens; empty content reads in 0.
func Estimate(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
