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

// Package client talks to a running launcher's local API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/oxrlauncher/oxrlauncher/pkg/api/models"
	"github.com/oxrlauncher/oxrlauncher/pkg/catalog"
	"github.com/oxrlauncher/oxrlauncher/pkg/config"
	"github.com/rs/zerolog/log"
)

var ErrEventStreamClosed = errors.New("event stream closed")

// APIError is a non-2xx response.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

type Client struct {
	http *http.Client
	base *url.URL
}

// LocalURL is the base URL of the API on this machine.
func LocalURL(port int) string {
	return "http://127.0.0.1:" + strconv.Itoa(port)
}

func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	return &Client{
		http: &http.Client{Timeout: config.APIReqTimeout},
		base: u,
	}, nil
}

func (c *Client) State(ctx context.Context) (models.State, error) {
	var st models.State
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &st)
	return st, err
}

func (c *Client) Titles(ctx context.Context) ([]catalog.Title, error) {
	var out models.Titles
	err := c.do(ctx, http.MethodGet, "/api/titles", nil, &out)
	return out.Titles, err
}

// Launch asks the daemon to find a title by name and launch it.
func (c *Client) Launch(ctx context.Context, query string) (catalog.Title, error) {
	body, err := json.Marshal(models.LaunchRequest{Query: query})
	if err != nil {
		return catalog.Title{}, fmt.Errorf("encoding launch request: %w", err)
	}
	var out models.Launched
	err = c.do(ctx, http.MethodPost, "/api/launch", body, &out)
	return out.Title, err
}

func (c *Client) LaunchID(ctx context.Context, id string) (catalog.Title, error) {
	var out models.Launched
	err := c.do(ctx, http.MethodPost, "/api/launch/"+url.PathEscape(id), nil, &out)
	return out.Title, err
}

func (c *Client) Kill(ctx context.Context) (models.State, error) {
	var st models.State
	err := c.do(ctx, http.MethodPost, "/api/kill", nil, &st)
	return st, err
}

// LaunchAndWait launches by name and waits for the attempt's outcome:
// a launch.running or launch.not_started event for that title.
func (c *Client) LaunchAndWait(ctx context.Context, query string) (models.Event, error) {
	events, closeEvents, err := c.Events(ctx)
	if err != nil {
		return models.Event{}, err
	}
	defer closeEvents()

	// The server greets with a state event once this stream is subscribed.
	select {
	case <-ctx.Done():
		return models.Event{}, fmt.Errorf("waiting for event stream: %w", ctx.Err())
	case _, ok := <-events:
		if !ok {
			return models.Event{}, ErrEventStreamClosed
		}
	}

	title, err := c.Launch(ctx, query)
	if err != nil {
		return models.Event{}, err
	}
	log.Debug().Str("titleID", title.ID).Msg("launch accepted, waiting for outcome")

	for {
		select {
		case <-ctx.Done():
			return models.Event{}, fmt.Errorf("waiting for %s: %w", title.ID, ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return models.Event{}, ErrEventStreamClosed
			}
			if ev.TitleID != title.ID {
				continue
			}
			if ev.Event == models.EventRunning || ev.Event == models.EventNotStarted {
				return ev, nil
			}
		}
	}
}

// Events streams websocket events until ctx is done or the returned close
// function is called.
func (c *Client) Events(ctx context.Context) (<-chan models.Event, func(), error) {
	wsURL := *c.base
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.Path = "/api/events"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dialing event stream: %w", err)
	}

	out := make(chan models.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev models.Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				log.Debug().Err(err).Msg("skipping malformed event")
				continue
			}
			select {
			case out <- ev:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			close(done)
			if err := conn.Close(); err != nil {
				log.Debug().Err(err).Msg("closing event stream")
			}
		})
	}
	return out, closeFn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, dest any) error {
	u, err := c.base.Parse(path)
	if err != nil {
		return fmt.Errorf("building url for %s: %w", path, err)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("closing response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr models.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
