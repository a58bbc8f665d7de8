package tmi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"git.sr.ht/~taiite/tmi/irc"
)

// EmoteSetFetcher looks up the emotes of the given sets.
type EmoteSetFetcher interface {
	FetchEmoteSets(ctx context.Context, sets []string) (map[string][]irc.Emote, error)
}

const helixMaxSets = 25

// HelixEmoteSets fetches emote sets from the Helix REST API.
type HelixEmoteSets struct {
	ClientID   string
	Token      string // OAuth token, with or without the "oauth:" prefix.
	BaseURL    string // defaults to https://api.twitch.tv/helix.
	HTTPClient *http.Client
}

func (h *HelixEmoteSets) http() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return http.DefaultClient
}

func (h *HelixEmoteSets) baseURL() string {
	if h.BaseURL != "" {
		return strings.TrimSuffix(h.BaseURL, "/")
	}
	return "https://api.twitch.tv/helix"
}

func (h *HelixEmoteSets) FetchEmoteSets(ctx context.Context, sets []string) (map[string][]irc.Emote, error) {
	registry := map[string][]irc.Emote{}
	for _, id := range sets {
		registry[id] = nil
	}
	for start := 0; start < len(sets); start += helixMaxSets {
		end := start + helixMaxSets
		if end > len(sets) {
			end = len(sets)
		}
		if err := h.fetch(ctx, sets[start:end], registry); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (h *HelixEmoteSets) fetch(ctx context.Context, sets []string, registry map[string][]irc.Emote) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL()+"/chat/emotes/set", nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for _, id := range sets {
		q.Add("emote_set_id", id)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", h.ClientID)
	req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(h.Token, "oauth:"))

	resp, err := h.http().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emote sets request failed: %s", resp.Status)
	}

	var body struct {
		Data []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			EmoteSetID string `json:"emote_set_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode emote sets: %w", err)
	}
	for _, e := range body.Data {
		registry[e.EmoteSetID] = append(registry[e.EmoteSetID], irc.Emote{ID: e.ID, Code: e.Name})
	}
	return nil
}
