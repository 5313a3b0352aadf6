package ai

import (
	"strings"
	"testing"
)

func TestParsePinContent(t *testing.T) {
	t.Parallel()
	raw := `{"title": "Fall Porch Ideas", "description": "Warm and cozy.", "keywords": ["fall", "porch"]}`
	c, err := parsePinContent(raw)
	if err != nil {
		t.Fatalf("parsePinContent: %v", err)
	}
	if c.Title != "Fall Porch Ideas" || c.Description != "Warm and cozy." {
		t.Fatalf("content = %+v", c)
	}
	if len(c.Keywords) != 2 {
		t.Fatalf("keywords = %v", c.Keywords)
	}
}

func TestParsePinContentStripsFences(t *testing.T) {
	t.Parallel()
	raw := "```json\n{\"title\": \"T\", \"description\": \"D\", \"keywords\": []}\n```"
	c, err := parsePinContent(raw)
	if err != nil {
		t.Fatalf("parsePinContent: %v", err)
	}
	if c.Title != "T" {
		t.Fatalf("title = %q", c.Title)
	}
}

func TestParsePinContentRejectsBadPayloads(t *testing.T) {
	t.Parallel()
	if _, err := parsePinContent("Sure! Here is your pin content."); err == nil {
		t.Fatal("prose must not parse")
	}
	if _, err := parsePinContent(`{"description": "no title"}`); err == nil {
		t.Fatal("missing title must be rejected")
	}
}

func TestNearestOpenAISize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		w, h int
		want string
	}{
		{1000, 1500, "1024x1792"},
		{1500, 1000, "1792x1024"},
		{512, 512, "1024x1024"},
		{0, 0, "1024x1024"},
	}
	for _, tc := range cases {
		if got := nearestOpenAISize(tc.w, tc.h); got != tc.want {
			t.Errorf("nearestOpenAISize(%d, %d) = %s, want %s", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestImageModelFor(t *testing.T) {
	t.Parallel()
	if got := imageModelFor("gpt-4o-mini"); got != "dall-e-3" {
		t.Fatalf("chat model mapped to %s, want dall-e-3", got)
	}
	if got := imageModelFor("dall-e-2"); got != "dall-e-2" {
		t.Fatalf("explicit image model mapped to %s, want dall-e-2", got)
	}
}

func TestNearestAspectRatio(t *testing.T) {
	t.Parallel()
	cases := []struct {
		w, h int
		want string
	}{
		{1000, 1500, "3:4"},
		{1000, 1000, "1:1"},
		{1080, 1920, "9:16"},
		{1920, 1080, "16:9"},
		{1400, 1000, "4:3"},
		{0, 100, "1:1"},
	}
	for _, tc := range cases {
		if got := nearestAspectRatio(tc.w, tc.h); got != tc.want {
			t.Errorf("nearestAspectRatio(%d, %d) = %s, want %s", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestEstimateTokensFallsBack(t *testing.T) {
	t.Parallel()
	n := estimateTokens("definitely-not-a-model", strings.Repeat("pinterest pin ", 10))
	if n <= 0 {
		t.Fatalf("tokens = %d, want > 0 via encoding fallback", n)
	}
}
