package protocol

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
)

const (
	DefaultBotIDPrefix = "cortex"
	botIDSuffixLen     = 7
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// BotID derives the per-instance channel namespace from the configured user id.
// The suffix is the tail of the base64 sha256 digest with punctuation removed.
func BotID(prefix, userID string) string {
	if prefix == "" {
		prefix = DefaultBotIDPrefix
	}
	sum := sha256.Sum256([]byte(userID))
	suffix := nonWord.ReplaceAllString(base64.StdEncoding.EncodeToString(sum[:]), "")
	if len(suffix) > botIDSuffixLen {
		suffix = suffix[len(suffix)-botIDSuffixLen:]
	}
	return prefix + "-" + suffix
}
