package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// FileStorage keeps every record in a single JSON document. It is meant for
// local runs without Postgres; contributions are stored but never published.
type FileStorage struct {
	filePath string
	mu       sync.Mutex
	data     *fileData
}

type fileData struct {
	Requests      map[string]Request   `json:"requests"`
	History       []HistoryEntry       `json:"history"`
	Candidates    map[string]Candidate `json:"candidates"`
	NGOs          map[string]NGO       `json:"ngos"`
	Contributions []ContributionEvent  `json:"contributions"`
	Operators     map[string]string    `json:"operators"`
}

func newFileData() *fileData {
	return &fileData{
		Requests:   make(map[string]Request),
		Candidates: make(map[string]Candidate),
		NGOs:       make(map[string]NGO),
		Operators:  make(map[string]string),
	}
}

func NewFileStorage(filePath string) (*FileStorage, error) {
	fs := &FileStorage{
		filePath: filePath,
		data:     newFileData(),
	}
	return fs, fs.load()
}

func (fs *FileStorage) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	data := newFileData()
	if err := json.NewDecoder(file).Decode(data); err != nil {
		return fmt.Errorf("failed to decode %s: %w", fs.filePath, err)
	}
	// Maps absent from an older file decode as nil.
	if data.Requests == nil {
		data.Requests = make(map[string]Request)
	}
	if data.Candidates == nil {
		data.Candidates = make(map[string]Candidate)
	}
	if data.NGOs == nil {
		data.NGOs = make(map[string]NGO)
	}
	if data.Operators == nil {
		data.Operators = make(map[string]string)
	}
	fs.data = data
	return nil
}

func (d *fileData) clone() *fileData {
	out := &fileData{
		Requests:      make(map[string]Request, len(d.Requests)),
		History:       append([]HistoryEntry(nil), d.History...),
		Candidates:    make(map[string]Candidate, len(d.Candidates)),
		NGOs:          make(map[string]NGO, len(d.NGOs)),
		Contributions: append([]ContributionEvent(nil), d.Contributions...),
		Operators:     make(map[string]string, len(d.Operators)),
	}
	for k, v := range d.Requests {
		out.Requests[k] = v
	}
	for k, v := range d.Candidates {
		out.Candidates[k] = v
	}
	for k, v := range d.NGOs {
		out.NGOs[k] = v
	}
	for k, v := range d.Operators {
		out.Operators[k] = v
	}
	return out
}

// mutate applies change to a copy of the document and swaps the copy in
// only once it is on disk, so a failed write leaves memory untouched.
// It must be called with fs.mu held.
func (fs *FileStorage) mutate(change func(d *fileData)) error {
	next := fs.data.clone()
	change(next)
	if err := fs.save(next); err != nil {
		return fmt.Errorf("failed to save %s: %w", fs.filePath, err)
	}
	fs.data = next
	return nil
}

// save writes data to a temporary file and renames it over the old one.
func (fs *FileStorage) save(data *fileData) error {
	tmp, err := os.CreateTemp(filepath.Dir(fs.filePath), filepath.Base(fs.filePath)+".*")
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), fs.filePath); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (fs *FileStorage) CreateRequest(_ context.Context, req Request, entry HistoryEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.data.Requests[req.ID]; ok {
		return fmt.Errorf("request %s: %w", req.ID, ErrAlreadyExists)
	}
	return fs.mutate(func(d *fileData) {
		d.Requests[req.ID] = req
		d.History = append(d.History, entry)
	})
}

func (fs *FileStorage) GetRequest(_ context.Context, id string) (*Request, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	req, ok := fs.data.Requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return &req, nil
}

func (fs *FileStorage) UpdateRequest(_ context.Context, req Request, expectedVersion int, entry HistoryEntry, events []ContributionEvent) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cur, ok := fs.data.Requests[req.ID]
	if !ok {
		return fmt.Errorf("request %s: %w", req.ID, ErrNotFound)
	}
	if cur.Version != expectedVersion {
		return fmt.Errorf("request %s version %d: %w", req.ID, expectedVersion, ErrConcurrentUpdate)
	}

	return fs.mutate(func(d *fileData) {
		d.Requests[req.ID] = req
		d.History = append(d.History, entry)
		d.Contributions = append(d.Contributions, events...)
	})
}

func (fs *FileStorage) ListOpenRequests(_ context.Context) ([]Request, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var out []Request
	for _, req := range fs.data.Requests {
		if !req.Status.Terminal() {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (fs *FileStorage) GetRequestHistory(_ context.Context, id string) ([]HistoryEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var out []HistoryEntry
	for _, e := range fs.data.History {
		if e.RequestID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (fs *FileStorage) ListCandidates(_ context.Context) ([]Candidate, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]Candidate, 0, len(fs.data.Candidates))
	for _, c := range fs.data.Candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (fs *FileStorage) UpsertCandidate(_ context.Context, c Candidate) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mutate(func(d *fileData) {
		d.Candidates[c.ID] = c
	})
}

func (fs *FileStorage) GetNGO(_ context.Context, id string) (*NGO, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ngo, ok := fs.data.NGOs[id]
	if !ok {
		return nil, fmt.Errorf("ngo %s: %w", id, ErrNotFound)
	}
	return &ngo, nil
}

func (fs *FileStorage) UpsertNGO(_ context.Context, ngo NGO) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mutate(func(d *fileData) {
		d.NGOs[ngo.ID] = ngo
	})
}

func (fs *FileStorage) ListContributions(_ context.Context) ([]ContributionEvent, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]ContributionEvent, len(fs.data.Contributions))
	copy(out, fs.data.Contributions)
	return out, nil
}

func (fs *FileStorage) CreateOperator(_ context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mutate(func(d *fileData) {
		d.Operators[username] = string(hash)
	})
}

func (fs *FileStorage) Exists(_ context.Context, username string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, ok := fs.data.Operators[username]
	return ok, nil
}

func (fs *FileStorage) ValidateUser(_ context.Context, username, password string) (bool, error) {
	fs.mu.Lock()
	hash, ok := fs.data.Operators[username]
	fs.mu.Unlock()
	if !ok {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
