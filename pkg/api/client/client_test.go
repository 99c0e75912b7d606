// OpenXR Launcher
// Copyright (c) 2026 The OpenXR Launcher Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of OpenXR Launcher.
//
// OpenXR Launcher is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// OpenXR Launcher is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with OpenXR Launcher.  If not, see <http://www.gnu.org/licenses/>.

package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LaunchSendsQuery(t *testing.T) {
	t.Parallel()

	var gotBody, gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"title":{"id":"620980","name":"Beat Saber","kind":"indirect","vr":true}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)

	title, err := c.Launch(context.Background(), "beat saber")
	require.NoError(t, err)
	assert.Equal(t, "620980", title.ID)
	assert.Equal(t, "/api/launch", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"query":"beat saber"}`, gotBody)
}

func TestClient_LaunchIDEscapesPaths(t *testing.T) {
	t.Parallel()

	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRaw = r.URL.EscapedPath()
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"title":{"id":"/opt/x/run","name":"run","kind":"direct","vr":false}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.LaunchID(context.Background(), "/opt/x/run")
	require.NoError(t, err)
	assert.Equal(t, "/api/launch/%2Fopt%2Fx%2Frun", gotRaw)
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
		status  int
	}{
		{name: "json error", status: http.StatusConflict, body: `{"error":"busy"}`, wantMsg: "busy"},
		{name: "plain text", status: http.StatusTooManyRequests, body: "Too Many Requests\n", wantMsg: "Too Many Requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			c, err := New(srv.URL)
			require.NoError(t, err)

			_, err = c.Kill(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestLocalURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "http://127.0.0.1:7560", LocalURL(7560))
}
