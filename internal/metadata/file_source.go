package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FileSource serves metadata entries from a JSON file keyed by address,
// loaded once at construction. Refresh by building a new source and calling
// Cache.Replace with its entries.
type FileSource struct {
	mu      sync.RWMutex
	entries map[common.Address]Entry
}

// NewFileSource loads a metadata file. The file is a JSON object mapping
// hex addresses to entries.
func NewFileSource(path string) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}

	var byHex map[string]Entry
	if err := json.Unmarshal(raw, &byHex); err != nil {
		return nil, fmt.Errorf("parse metadata file: %w", err)
	}

	entries := make(map[common.Address]Entry, len(byHex))
	for hex, entry := range byHex {
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("invalid address in metadata file: %s", hex)
		}
		entries[common.HexToAddress(strings.TrimSpace(hex))] = entry
	}

	return &FileSource{entries: entries}, nil
}

// NewStaticSource wraps an in-memory entry set as a source.
func NewStaticSource(entries map[common.Address]Entry) *FileSource {
	data := make(map[common.Address]Entry, len(entries))
	for address, entry := range entries {
		data[address] = entry
	}
	return &FileSource{entries: data}
}

// Entries returns a copy of the loaded entry set.
func (s *FileSource) Entries() map[common.Address]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[common.Address]Entry, len(s.entries))
	for address, entry := range s.entries {
		out[address] = entry
	}
	return out
}

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context, address common.Address) (Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[address]
	s.mu.RUnlock()
	return entry, ok, nil
}
