package models

import (
	"encoding/base64"
	"strings"
)

// Tier selects composition density for a gift box
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ParseTier maps free-form input to a Tier. Anything unrecognised is standard.
func ParseTier(s string) Tier {
	if strings.EqualFold(strings.TrimSpace(s), string(TierPremium)) {
		return TierPremium
	}
	return TierStandard
}

// Mode is a special composition mode detected in the notes
type Mode string

const (
	ModeThemed Mode = "themed"
)

// RequestContext is the form submitted for one generation
type RequestContext struct {
	Recipient string `json:"recipient"`
	Occasion  string `json:"occasion"`
	Vibe      string `json:"vibe"`
	Tier      Tier   `json:"tier"`
	Notes     string `json:"notes"`
	SessionID string `json:"session_id"`
}

// TagSet is everything the extractor recognised in the notes
type TagSet struct {
	AgeBand         string   `json:"age_band,omitempty"`
	Colors          []string `json:"colors"`
	BrandsRequested []string `json:"brands_requested"`
	BrandsBlocked   []string `json:"brands_blocked"`
	IncludeTags     []string `json:"include_tags"`
	AvoidTags       []string `json:"avoid_tags"`
	Modes           []Mode   `json:"modes"`
	TimeToken       string   `json:"time_token,omitempty"`
}

// HasMode reports whether the mode was detected
func (t TagSet) HasMode(mode Mode) bool {
	for _, m := range t.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// BrandPolicy decides which requested brands may appear in the render
type BrandPolicy struct {
	AllowList  []string `json:"allow_list"`
	DenyList   []string `json:"deny_list"`
	StrictMode bool     `json:"strict_mode"`
}

// Permits reports whether a brand may be shown under this policy
func (p BrandPolicy) Permits(brand string) bool {
	if !p.StrictMode {
		return true
	}
	return containsFold(p.AllowList, brand) && !containsFold(p.DenyList, brand)
}

// ComposedConstraints is the compiled constraint set handed to a backend
type ComposedConstraints struct {
	MustInclude []string `json:"must_include"`
	Negative    []string `json:"negative"`
	PromptText  string   `json:"prompt_text"`
}

// ContentRef is an opaque reference to produced image content
type ContentRef struct {
	URI      string `json:"uri,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
}

// DataURI returns the URI, rendering inline bytes as a data URI when no URI is set
func (c *ContentRef) DataURI() string {
	if c == nil {
		return ""
	}
	if c.URI != "" || len(c.Data) == 0 {
		return c.URI
	}
	return "data:" + c.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
}

// Generation outcome statuses
const (
	StatusAccepted      = "accepted"
	StatusUnverified    = "unverified"
	StatusFallback      = "fallback"
	StatusQuotaExceeded = "quota_exceeded"
)

// GenerationResult is returned to the caller for every generation request
type GenerationResult struct {
	Accepted   bool        `json:"accepted"`
	ContentRef *ContentRef `json:"-"`
	UsedCount  int         `json:"used_count"`
	Fallback   bool        `json:"fallback"`
	Reason     string      `json:"reason,omitempty"`
	Status     string      `json:"status"`
	Verified   bool        `json:"verified"`
	Attempts   int         `json:"attempts"`
	Backend    string      `json:"backend,omitempty"`
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
