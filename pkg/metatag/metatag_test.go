package metatag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"multiapi/pkg/metatag"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name    string
		html    string
		content string
		ok      bool
	}{
		{
			name:    "present",
			html:    `<html><head><meta property="og:title" content="acct: hello"></head></html>`,
			content: "acct: hello",
			ok:      true,
		},
		{
			name:    "first of many",
			html:    `<meta property="og:title" content="first"><meta property="og:title" content="second">`,
			content: "first",
			ok:      true,
		},
		{
			name:    "other properties ignored",
			html:    `<meta property="og:image" content="x.png"><meta name="og:title" content="by name">`,
			content: "",
			ok:      false,
		},
		{
			name:    "entities decoded",
			html:    `<meta property="og:title" content="acct: fish &amp; chips">`,
			content: "acct: fish & chips",
			ok:      true,
		},
		{
			name:    "missing",
			html:    `<html><head><title>nothing</title></head></html>`,
			content: "",
			ok:      false,
		},
		{
			name:    "garbage",
			html:    "\x00\x01<<<",
			content: "",
			ok:      false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content, ok, err := metatag.Extract([]byte(tc.html), metatag.OGTitle)
			require.NoError(t, err)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.content, content)
		})
	}
}

func TestCaptionFromTitle(t *testing.T) {
	require.Equal(t, "hello: world", metatag.CaptionFromTitle("acct: hello: world"))
	require.Equal(t, "", metatag.CaptionFromTitle("no colon here"))
	require.Equal(t, "", metatag.CaptionFromTitle("acct:"))
	require.Equal(t, "", metatag.CaptionFromTitle(""))
	require.Equal(t, "a::b", metatag.CaptionFromTitle("acct:a::b"))
}
