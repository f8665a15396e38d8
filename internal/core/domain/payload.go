package domain

import (
	"bytes"
	"encoding/json"
)

// ExtractProfilePayload normalizes the raw scrape response into a single
// ProfileRecord. Providers return varying shapes: a bare profile object, a
// top-level array of profiles, or the payload nested under a "data",
// "profile" or "profiles" key. The shapes are tried in that order and the
// first profile found wins. Returns ErrNoProfileData when nothing matches.
func ExtractProfilePayload(raw json.RawMessage) (*ProfileRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrNoProfileData
	}

	if p := decodeProfile(raw); p != nil {
		return p, nil
	}

	var envelope struct {
		Data     json.RawMessage `json:"data"`
		Profile  json.RawMessage `json:"profile"`
		Profiles json.RawMessage `json:"profiles"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrNoProfileData
	}

	for _, nested := range []json.RawMessage{envelope.Data, envelope.Profile, envelope.Profiles} {
		nested = bytes.TrimSpace(nested)
		if len(nested) == 0 || bytes.Equal(nested, []byte("null")) {
			continue
		}
		if p := decodeProfile(nested); p != nil {
			return p, nil
		}
	}

	return nil, ErrNoProfileData
}

// decodeProfile decodes raw as either a profile object or an array of
// profiles, returning nil when the result carries no identifying fields.
func decodeProfile(raw json.RawMessage) *ProfileRecord {
	if len(raw) == 0 {
		return nil
	}

	if raw[0] == '[' {
		var list []ProfileRecord
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		for i := range list {
			if profilePresent(&list[i]) {
				return &list[i]
			}
		}
		return nil
	}

	var p ProfileRecord
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if profilePresent(&p) {
		return &p
	}
	return nil
}

func profilePresent(p *ProfileRecord) bool {
	return p.ProfileID != "" || p.URL != "" || p.FullName != "" || p.Headline != ""
}
