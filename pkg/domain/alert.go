package domain

import (
	"fmt"
	"strings"
)

type Alert struct {
	PostID  string
	PostURL string
	Text    string
	Verdict Verdict
}

// Message renders the alert body shared by every notifier.
func (a Alert) Message() string {
	return fmt.Sprintf("%s: %s\nReason: %s",
		strings.ToUpper(a.Verdict.Classification.String()),
		a.Text,
		a.Verdict.Explanation,
	)
}

// Subject is a one-line summary for channels that need one (e-mail).
func (a Alert) Subject() string {
	return fmt.Sprintf("%s signal on post %s", strings.ToUpper(a.Verdict.Classification.String()), a.PostID)
}
