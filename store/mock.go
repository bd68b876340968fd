package store

import (
	"context"
)

// MockStore is a mock implementation of Store for testing.
// Each method field can be set to a custom function to control behavior.
type MockStore struct {
	ListAllFn  func(ctx context.Context) ([]Iphone, error)
	CreateFn   func(ctx context.Context, fields IphoneFields) (*Iphone, error)
	FindByIDFn func(ctx context.Context, id int64) (*Iphone, error)
	UpdateFn   func(ctx context.Context, id int64, fields IphoneUpdate) (*Iphone, error)
	DeleteFn   func(ctx context.Context, id int64) error
}

// Compile-time check that MockStore implements Store.
var _ Store = (*MockStore)(nil)

func (m *MockStore) Close() {}

func (m *MockStore) ListAll(ctx context.Context) ([]Iphone, error) {
	if m.ListAllFn != nil {
		return m.ListAllFn(ctx)
	}
	return []Iphone{}, nil
}

func (m *MockStore) Create(ctx context.Context, fields IphoneFields) (*Iphone, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, fields)
	}
	return nil, nil
}

func (m *MockStore) FindByID(ctx context.Context, id int64) (*Iphone, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) Update(ctx context.Context, id int64, fields IphoneUpdate) (*Iphone, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, fields)
	}
	return nil, ErrNotFound
}

func (m *MockStore) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return ErrNotFound
}
