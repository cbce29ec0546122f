package usecase

import (
	"fmt"
	"strings"

	"github.com/titledoctor/pipeline-service/internal/domain/entity"
)

const reportRule = "============================================================"

// renderReport builds the deterministic plain-text report: header with
// the channel name, one block per video, footer.
func renderReport(channelName string, titles []entity.ImprovedTitle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "YouTube Title Doctor - Improved Titles for %s\n", channelName)
	b.WriteString(reportRule + "\n\n")

	for i, t := range titles {
		fmt.Fprintf(&b, "Video %d:\n", i+1)
		b.WriteString("-------------\n")
		fmt.Fprintf(&b, "Original: %s\n", t.Original)
		fmt.Fprintf(&b, "Improved: %s\n", t.Improved)
		fmt.Fprintf(&b, "Why: %s\n", t.Rationale)
		fmt.Fprintf(&b, "Watch: %s\n\n", t.URL)
	}

	b.WriteString(reportRule + "\n")
	b.WriteString("-- YouTube Title Doctor\n")

	return b.String()
}

func reportSubject(channelName string) string {
	return fmt.Sprintf("New titles for %s", channelName)
}

const (
	failureSubject = "Your YouTube Title Doctor request failed"
	failureBody    = "We are facing some issues generating better titles for your channel. Please try again later.\n\n-- YouTube Title Doctor\n"
)
