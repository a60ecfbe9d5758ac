package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/domain"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/pkg/cache"
)

// In-memory repository fakes. The meta flows touch the repositories in many
// small steps, so stateful fakes read better than per-call mocks here.

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[uint64]*domain.Post
	nextID uint64
	meta   *fakeMetaRepo
}

func newFakePostRepo(meta *fakeMetaRepo) *fakePostRepo {
	return &fakePostRepo{posts: make(map[uint64]*domain.Post), nextID: 1, meta: meta}
}

func (f *fakePostRepo) FindByID(id uint64) (*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *post
	return &copied, nil
}

func (f *fakePostRepo) Create(post *domain.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if post.ID == 0 {
		post.ID = f.nextID
		f.nextID++
	} else if post.ID >= f.nextID {
		f.nextID = post.ID + 1
	}
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) Update(post *domain.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[post.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) namedRevisions(parentID uint64) []domain.Post {
	var revisions []domain.Post
	for _, post := range f.posts {
		if post.ParentID == parentID && post.PostType == domain.TypeRevision &&
			!strings.Contains(post.Name, "-autosave-v") {
			revisions = append(revisions, *post)
		}
	}
	sortNewestFirst(revisions)
	return revisions
}

func sortNewestFirst(posts []domain.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].ModifiedAt.Equal(posts[j].ModifiedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].ModifiedAt.After(posts[j].ModifiedAt)
	})
}

func (f *fakePostRepo) ListRevisions(parentID uint64, page, perPage int, exclude []uint64) ([]domain.Post, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	excluded := make(map[uint64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var revisions []domain.Post
	for _, revision := range f.namedRevisions(parentID) {
		if !excluded[revision.ID] {
			revisions = append(revisions, revision)
		}
	}

	total := int64(len(revisions))
	start := (page - 1) * perPage
	if start >= len(revisions) {
		return []domain.Post{}, total, nil
	}
	end := start + perPage
	if end > len(revisions) {
		end = len(revisions)
	}
	return revisions[start:end], total, nil
}

func (f *fakePostRepo) LatestRevision(parentID uint64) (*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	revisions := f.namedRevisions(parentID)
	if len(revisions) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &revisions[0], nil
}

func (f *fakePostRepo) LatestRevisionWithMeta(parentID uint64, metaKey, metaValue string) (*domain.Post, error) {
	f.mu.Lock()
	revisions := f.namedRevisions(parentID)
	f.mu.Unlock()

	for i := range revisions {
		value, _ := f.meta.Get(revisions[i].ID, metaKey)
		if value == metaValue {
			return &revisions[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePostRepo) Autosaves(parentID uint64) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var autosaves []domain.Post
	for _, post := range f.posts {
		if post.ParentID == parentID && post.PostType == domain.TypeRevision &&
			strings.Contains(post.Name, "-autosave-v") {
			autosaves = append(autosaves, *post)
		}
	}
	sortNewestFirst(autosaves)
	return autosaves, nil
}

func (f *fakePostRepo) CountRevisionsByStatus(parentID uint64, status string) (int64, error) {
	f.mu.Lock()
	revisions := f.namedRevisions(parentID)
	f.mu.Unlock()

	var count int64
	for i := range revisions {
		value, _ := f.meta.Get(revisions[i].ID, domain.MetaKeyStatus)
		if value == status {
			count++
		}
	}
	return count, nil
}

func (f *fakePostRepo) DeleteRevision(id uint64) error {
	f.mu.Lock()
	delete(f.posts, id)
	f.mu.Unlock()
	f.meta.deleteAll(id)
	return nil
}

type fakeMetaRepo struct {
	mu   sync.Mutex
	data map[uint64]map[string]string
}

func newFakeMetaRepo() *fakeMetaRepo {
	return &fakeMetaRepo{data: make(map[uint64]map[string]string)}
}

func (f *fakeMetaRepo) Get(postID uint64, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[postID][key], nil
}

func (f *fakeMetaRepo) GetAll(postID uint64) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta := make(map[string]string, len(f.data[postID]))
	for key, value := range f.data[postID] {
		meta[key] = value
	}
	return meta, nil
}

func (f *fakeMetaRepo) Set(postID uint64, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[postID] == nil {
		f.data[postID] = make(map[string]string)
	}
	f.data[postID][key] = value
	return nil
}

func (f *fakeMetaRepo) Delete(postID uint64, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data[postID], key)
	}
	return nil
}

func (f *fakeMetaRepo) deleteAll(postID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, postID)
}

type fakeLockRepo struct {
	mu      sync.Mutex
	holders map[uint64]uint64
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{holders: make(map[uint64]uint64)}
}

func (f *fakeLockRepo) Holder(_ context.Context, postID uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holders[postID], nil
}

func (f *fakeLockRepo) IsLockedByOther(_ context.Context, postID uint64, userID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	holder := f.holders[postID]
	return holder != 0 && holder != userID, nil
}

func (f *fakeLockRepo) Refresh(_ context.Context, postID uint64, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holders[postID] = userID
	return nil
}

func (f *fakeLockRepo) Release(_ context.Context, postID uint64, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holders[postID] == userID {
		delete(f.holders, postID)
	}
	return nil
}

type fakeUserRepo struct {
	users map[uint64]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint64]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) FindByID(id uint64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

// fakeCache is an in-memory cache.Service
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

var errCacheMiss = errors.New("cache miss")

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCache) GetAutosaveIDs(ctx context.Context, postID uint64) ([]uint64, error) {
	var ids []uint64
	if err := f.Get(ctx, fmt.Sprintf("autosaves:%d", postID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (f *fakeCache) SetAutosaveIDs(ctx context.Context, postID uint64, ids []uint64) error {
	return f.Set(ctx, fmt.Sprintf("autosaves:%d", postID), ids, 0)
}

func (f *fakeCache) InvalidateArticle(ctx context.Context, postID uint64) error {
	return f.Delete(ctx, cache.ArticleKey(postID))
}

func (f *fakeCache) IsAvailable() bool            { return true }
func (f *fakeCache) Ping(_ context.Context) error { return nil }

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// testHookLogger is a no-op hook logger for tests
type testHookLogger struct{}

func (testHookLogger) Debug(string, ...interface{}) {}
func (testHookLogger) Info(string, ...interface{})  {}
func (testHookLogger) Warn(string, ...interface{})  {}
func (testHookLogger) Error(string, ...interface{}) {}

// testEnv wires the full service stack over the fakes
type testEnv struct {
	posts *fakePostRepo
	meta  *fakeMetaRepo
	locks *fakeLockRepo
	users *fakeUserRepo
	hooks *plugin.HookManager

	metaService    MetaService
	postService    PostService
	restoreService RestoreService
	articleService ArticleService
}

func newTestEnv(users ...*domain.User) *testEnv {
	return newCachedTestEnv(nil, users...)
}

func newCachedTestEnv(cacheService cache.Service, users ...*domain.User) *testEnv {
	env := &testEnv{
		meta:  newFakeMetaRepo(),
		locks: newFakeLockRepo(),
		users: newFakeUserRepo(users...),
		hooks: plugin.NewHookManager(testHookLogger{}),
	}
	env.posts = newFakePostRepo(env.meta)

	env.metaService = NewMetaService(env.posts, env.meta, env.hooks, cacheService, nil, nil)
	env.postService = NewPostService(env.posts, env.metaService)
	env.restoreService = NewRestoreService(
		env.posts, env.meta, env.locks, env.metaService, env.postService, env.hooks, cacheService,
	)
	env.articleService = NewArticleService(
		env.posts, env.meta, env.users, env.metaService, env.restoreService, env.hooks, cacheService,
		50, "/admin/post/%d/edit", "/api/revisions/v1",
	)
	return env
}
