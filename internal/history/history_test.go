// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

package history

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/models"
)

func TestParseGUID(t *testing.T) {
	tests := []struct {
		guid string
		want providerIDs
	}{
		{"tmdb://603", providerIDs{tmdb: 603}},
		{"tvdb://81189", providerIDs{tvdb: 81189}},
		{"imdb://tt0133093", providerIDs{imdb: "tt0133093"}},
		{"com.plexapp.agents.themoviedb://603?lang=en", providerIDs{tmdb: 603}},
		{"com.plexapp.agents.thetvdb://81189/1/1?lang=en", providerIDs{tvdb: 81189}},
		{"com.plexapp.agents.imdb://tt0133093?lang=en", providerIDs{imdb: "tt0133093"}},
		{"plex://movie/5d776825880197001ec967c3", providerIDs{}},
		{"imdb://603", providerIDs{}},
		{"tmdb://abc", providerIDs{}},
		{"", providerIDs{}},
	}
	for _, tt := range tests {
		var got providerIDs
		parseGUID(tt.guid, &got)
		if got != tt.want {
			t.Errorf("parseGUID(%q) = %+v, want %+v", tt.guid, got, tt.want)
		}
	}
}

func TestCollapse(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	plays := []play{
		{title: "Severance", kind: models.MediaSeries, at: now},
		{title: "Heat", kind: models.MediaMovie, year: 1995, ids: providerIDs{tmdb: 949}, at: now.Add(-time.Hour)},
		{title: "severance", kind: models.MediaSeries, ids: providerIDs{tvdb: 371980}, at: now.Add(-2 * time.Hour)},
		{title: "Severance", kind: models.MediaSeries, count: 3, at: now.Add(-3 * time.Hour)},
		{title: "", kind: models.MediaMovie},
		{title: "Alien", kind: models.MediaMovie, at: now.Add(-4 * time.Hour)},
	}

	items := collapse(plays, 10)
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}

	sev := items[0]
	if sev.Title != "Severance" || sev.Kind != models.MediaSeries {
		t.Errorf("items[0] = %s/%s, want Severance/series", sev.Title, sev.Kind)
	}
	if sev.PlayCount != 5 {
		t.Errorf("PlayCount = %d, want 5", sev.PlayCount)
	}
	if sev.TVDBID != 371980 {
		t.Errorf("TVDBID = %d, want backfilled 371980", sev.TVDBID)
	}
	if !sev.LastPlayed.Equal(now) {
		t.Errorf("LastPlayed = %v, want most recent play", sev.LastPlayed)
	}
	if items[1].Title != "Heat" || items[2].Title != "Alien" {
		t.Errorf("order = %s, %s; want Heat, Alien", items[1].Title, items[2].Title)
	}
}

func TestCollapse_Limit(t *testing.T) {
	plays := []play{
		{title: "A", kind: models.MediaMovie},
		{title: "B", kind: models.MediaMovie},
		{title: "A", kind: models.MediaMovie},
		{title: "C", kind: models.MediaMovie},
	}
	items := collapse(plays, 2)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].PlayCount != 2 {
		t.Errorf("A PlayCount = %d, want 2", items[0].PlayCount)
	}
}

func TestCollapse_SameTitleDifferentKind(t *testing.T) {
	plays := []play{
		{title: "Fargo", kind: models.MediaMovie},
		{title: "Fargo", kind: models.MediaSeries},
	}
	if items := collapse(plays, 10); len(items) != 2 {
		t.Errorf("len(items) = %d, want 2 distinct kinds", len(items))
	}
}

func TestReadBodyForError_Truncates(t *testing.T) {
	body := readBodyForError(strings.NewReader(strings.Repeat("x", maxErrorBodySize+10)))
	if !strings.HasSuffix(string(body), "(truncated)") {
		t.Error("expected truncation marker")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		source   string
		wantName string
		wantErr  bool
	}{
		{config.HistorySourcePlex, "plex", false},
		{config.HistorySourceJellyfin, "jellyfin", false},
		{config.HistorySourceTautulli, "tautulli", false},
		{"emby", "", true},
	}
	for _, tt := range tests {
		cfg := &config.Config{History: config.HistoryConfig{Source: tt.source}}
		src, err := New(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.source, err, tt.wantErr)
			continue
		}
		if err == nil && src.Name() != tt.wantName {
			t.Errorf("New(%q).Name() = %q", tt.source, src.Name())
		}
	}
}
