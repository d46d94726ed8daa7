package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a piece of text.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Source      string // Where the text came from: "prompt" or "generated_sql"
	Value       string // The text that was checked
}

// CheckForInjection runs libinjection over text.
//
// Returns nil if no injection is detected. Generated SQL is a complete statement, so it is
// not checked here; user prompts are, because a prompt that fingerprints as an injection
// payload is worth an audit line even though the model stands between it and the store.
//
// Example:
//
//	result := CheckForInjection("prompt", "ventas por region")
//	// result == nil
//
//	result := CheckForInjection("prompt", "1' OR '1'='1")
//	// result.IsSQLi == true
func CheckForInjection(source, text string) *InjectionCheckResult {
	if text == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Source:      source,
		Value:       text,
	}
}
