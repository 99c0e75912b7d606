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

package steam

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// appinfo.vdf header magics. v28 adds a second hash per entry and v29 moves
// keys into a string table at the end of the file.
const (
	appInfoV27 uint32 = 0x07564427
	appInfoV28 uint32 = 0x07564428
	appInfoV29 uint32 = 0x07564429
)

const (
	kvNested byte = 0x00
	kvString byte = 0x01
	kvInt32  byte = 0x02
	kvEnd    byte = 0x08
)

// Store categories that mark VR titles.
const (
	categoryVRSupported = "category_53"
	categoryVROnly      = "category_54"
)

var (
	ErrBadAppInfoMagic  = errors.New("unrecognised appinfo.vdf header")
	ErrBadAppInfoFormat = errors.New("malformed appinfo.vdf")
)

// AppDetails is what the launcher needs from an appinfo entry.
type AppDetails struct {
	Type string
	// Executable is the default Linux (or OS-agnostic) launch executable
	// relative to the install directory.
	Executable string
	AppID      int
	VR         bool
}

// IsGame reports whether the entry is a game or demo, not a tool such as a
// Proton build or runtime.
func (d AppDetails) IsGame() bool {
	switch strings.ToLower(d.Type) {
	case "game", "demo", "":
		return true
	default:
		return false
	}
}

type kvReader struct {
	data    []byte
	strings []string
	pos     int
	version uint32
}

func (r *kvReader) u8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *kvReader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *kvReader) skip(n int) error {
	if r.pos+n > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	r.pos += n
	return nil
}

func (r *kvReader) cstring() (string, error) {
	end := r.pos
	for end < len(r.data) && r.data[end] != 0 {
		end++
	}
	if end >= len(r.data) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.data[r.pos:end])
	r.pos = end + 1
	return s, nil
}

func (r *kvReader) key() (string, error) {
	if r.version != appInfoV29 {
		return r.cstring()
	}
	idx, err := r.u32()
	if err != nil {
		return "", err
	}
	if int(idx) >= len(r.strings) {
		return "", fmt.Errorf("%w: key index %d out of range", ErrBadAppInfoFormat, idx)
	}
	return r.strings[idx], nil
}

// object reads a binary KeyValues object with lowercased keys.
func (r *kvReader) object() (map[string]any, error) {
	out := make(map[string]any)
	for {
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		if kind == kvEnd {
			return out, nil
		}
		k, err := r.key()
		if err != nil {
			return nil, err
		}
		k = strings.ToLower(k)

		switch kind {
		case kvNested:
			v, err := r.object()
			if err != nil {
				return nil, err
			}
			out[k] = v
		case kvString:
			v, err := r.cstring()
			if err != nil {
				return nil, err
			}
			out[k] = v
		case kvInt32:
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			out[k] = strconv.FormatUint(uint64(v), 10)
		default:
			return nil, fmt.Errorf("%w: value type 0x%02x", ErrBadAppInfoFormat, kind)
		}
	}
}

func (r *kvReader) header() error {
	magic, err := r.u32()
	if err != nil {
		return err
	}
	switch magic {
	case appInfoV27, appInfoV28, appInfoV29:
	default:
		return ErrBadAppInfoMagic
	}
	r.version = magic
	if _, err := r.u32(); err != nil { // universe
		return err
	}
	if magic != appInfoV29 {
		return nil
	}

	if r.pos+8 > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	offset := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	if offset >= uint64(len(r.data)) {
		return fmt.Errorf("%w: string table offset", ErrBadAppInfoFormat)
	}

	body := r.pos
	r.pos = int(offset) //nolint:gosec // bounded by len(r.data) above
	count, err := r.u32()
	if err != nil {
		return err
	}
	r.strings = make([]string, 0, count)
	for range count {
		s, err := r.cstring()
		if err != nil {
			return err
		}
		r.strings = append(r.strings, s)
	}
	r.pos = body
	return nil
}

// ParseAppInfo decodes the app details of every entry in an appinfo.vdf
// blob. When want is non-empty only those app ids are decoded.
func ParseAppInfo(data []byte, want map[int]bool) (map[int]AppDetails, error) {
	r := &kvReader{data: data}
	if err := r.header(); err != nil {
		return nil, err
	}

	out := make(map[int]AppDetails)
	for {
		id, err := r.u32()
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return out, nil
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		next := r.pos + int(size)
		if next > len(r.data) {
			return nil, fmt.Errorf("%w: entry %d overruns file", ErrBadAppInfoFormat, id)
		}

		if len(want) > 0 && !want[int(id)] {
			r.pos = next
			continue
		}

		// info state, last updated, access token, sha1, change number
		metaLen := 4 + 4 + 8 + 20 + 4
		if r.version != appInfoV27 {
			metaLen += 20 // binary data sha1
		}
		if err := r.skip(metaLen); err != nil {
			return nil, err
		}
		obj, err := r.object()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", id, err)
		}
		out[int(id)] = detailsFromKV(int(id), obj)
		r.pos = next
	}
}

// ReadAppInfo reads <root>/appcache/appinfo.vdf.
func ReadAppInfo(fs afero.Fs, root string, want map[int]bool) (map[int]AppDetails, error) {
	path := filepath.Join(root, "appcache", "appinfo.vdf")
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	details, err := ParseAppInfo(data, want)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return details, nil
}

func detailsFromKV(appID int, obj map[string]any) AppDetails {
	d := AppDetails{AppID: appID}
	if inner, ok := obj["appinfo"].(map[string]any); ok {
		obj = inner
	}

	if common, ok := obj["common"].(map[string]any); ok {
		d.Type, _ = common["type"].(string)
		if cats, ok := common["category"].(map[string]any); ok {
			_, supported := cats[categoryVRSupported]
			_, only := cats[categoryVROnly]
			d.VR = supported || only
		}
		if v, ok := common["openvrsupport"].(string); ok && v != "" && v != "0" {
			d.VR = true
		}
	}

	if cfg, ok := obj["config"].(map[string]any); ok {
		if launch, ok := cfg["launch"].(map[string]any); ok {
			d.Executable = pickLaunchExecutable(launch)
		}
	}
	return d
}

// pickLaunchExecutable prefers the lowest numbered default entry that runs
// on Linux, then any Linux entry, then the first entry at all.
func pickLaunchExecutable(launch map[string]any) string {
	keys := make([]int, 0, len(launch))
	for k := range launch {
		if n, err := strconv.Atoi(k); err == nil {
			keys = append(keys, n)
		}
	}
	slices.Sort(keys)

	var linux, first string
	for _, k := range keys {
		entry, ok := launch[strconv.Itoa(k)].(map[string]any)
		if !ok {
			continue
		}
		exe, _ := entry["executable"].(string)
		if exe == "" {
			continue
		}
		if first == "" {
			first = exe
		}
		oslist := ""
		if sub, ok := entry["config"].(map[string]any); ok {
			oslist, _ = sub["oslist"].(string)
		}
		if oslist != "" && !strings.Contains(oslist, "linux") {
			continue
		}
		typ, _ := entry["type"].(string)
		if typ == "" || typ == "default" {
			return exe
		}
		if linux == "" {
			linux = exe
		}
	}
	if linux != "" {
		return linux
	}
	return first
}
