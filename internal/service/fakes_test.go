package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"humanityclub/site/internal/models"
	"humanityclub/site/internal/repository"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User

	passwordUpdates int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) SetRefreshToken(_ context.Context, id string, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshToken = &token
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) RotateRefreshToken(_ context.Context, id string, current string, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = &next
	f.users[id] = u
	return true, nil
}

func (f *fakeUserStore) ClearRefreshToken(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.RefreshToken = nil
		f.users[id] = u
	}
	return nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	f.passwordUpdates++
	return nil
}

func (f *fakeUserStore) storedToken(id string) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].RefreshToken
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (int64, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = buf.Bytes()
	return n, nil
}

func (f *fakeObjectStorage) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjectStorage) PublicURL(key string) string {
	return "https://assets.example.org/" + key
}

type enqueued struct {
	taskType string
	payload  any
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []enqueued
	err   error
}

func (f *fakeQueue) Enqueue(_ context.Context, taskType string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, enqueued{taskType: taskType, payload: payload})
	return nil
}
