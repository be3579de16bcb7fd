/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changestatus

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxListedItems is how many compilation errors or failed tests are listed
// per failure reason before the rest is summarized. The tail counts what
// was not listed: 15 failed tests render as 11 names and "... 4 more".
const maxListedItems = 11

// sinceDateLayout matches the medium date style of the build server UI.
const sinceDateLayout = "Jan 2, 2006"

// FriendlyDuration formats seconds as HH:MM:SS. Hours are not wrapped into days.
func FriendlyDuration(seconds int64) string {
	second := seconds % 60
	minute := (seconds / 60) % 60
	hour := seconds / 60 / 60
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}

// Compose renders the markdown comment posted for a build.
// Statistics and failure details are only included once the build completed.
func Compose(b Build, completed bool, hash, resultsURL string) string {
	var sb strings.Builder

	if completed {
		sb.WriteString("**")
		sb.WriteString(b.Status().Text())
		sb.WriteString("**")
	} else {
		sb.WriteString("Started")
	}

	sb.WriteString(" - TeamCity ")
	sb.WriteString(b.BuildTypeFullName())
	sb.WriteString(" [Build ")
	sb.WriteString(b.Number())
	sb.WriteString("](")
	sb.WriteString(resultsURL)
	sb.WriteString(") for ")
	sb.WriteString(hash)
	sb.WriteString("\n")

	if !completed {
		return sb.String()
	}

	stats := b.ShortStatistics()
	fmt.Fprintf(&sb, "Tests: %d, %d failed (%d new), %d ignored. Build time: %s",
		stats.AllTestCount, stats.FailedTestCount, stats.NewFailedCount, stats.IgnoredTestCount,
		FriendlyDuration(int64(b.Duration()/time.Second)))

	if b.Status() == StatusNormal {
		return sb.String()
	}

	details := b.Statistics()
	for _, problem := range b.FailureReasons() {
		sb.WriteString("\n\n")
		sb.WriteString(problem.Description)

		switch problem.Type {
		case CompilationErrorType:
			writeCompilationErrors(&sb, details)
		case FailedTestsType:
			writeFailedTests(&sb, details)
		}
	}
	return sb.String()
}

func writeCompilationErrors(sb *strings.Builder, details Statistics) {
	for i, block := range details.CompilationErrorBlocks {
		sb.WriteString("\n* ")
		sb.WriteString(block.CompilerMessages)
		if i == maxListedItems-1 {
			sb.WriteString("\n* ... ")
			sb.WriteString(strconv.Itoa(details.CompilationErrorsCount - maxListedItems))
			sb.WriteString(" more\n")
			return
		}
	}
}

func writeFailedTests(sb *strings.Builder, details Statistics) {
	for i, run := range details.FailedTests {
		sb.WriteString("\n* ")
		switch {
		case run.NewFailure:
			sb.WriteString("(new) ")
		case !run.FirstFailed.IsZero():
			sb.WriteString("(since ")
			sb.WriteString(run.FirstFailed.Format(sinceDateLayout))
			sb.WriteString(") ")
		}
		sb.WriteString(run.Name)
		sb.WriteString("\n\n")
		if i == maxListedItems-1 {
			sb.WriteString("... ")
			sb.WriteString(strconv.Itoa(details.FailedTestCount - maxListedItems))
			sb.WriteString(" more\n")
			return
		}
	}
}
