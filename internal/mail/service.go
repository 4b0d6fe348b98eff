package mail

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nhle/maillist/internal/model"
	"github.com/nhle/maillist/internal/store"
)

// Service fronts the IMAP client with the local cache. When the server is
// unreachable it serves cached data and reports ErrOffline alongside it.
type Service struct {
	client  Client
	store   store.Store
	limiter *rate.Limiter
	bodies  singleflight.Group
	limit   int
	log     zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFetchRate limits body fetches to perSec requests per second.
// Zero or negative disables the limit.
func WithFetchRate(perSec int) ServiceOption {
	return func(s *Service) {
		if perSec <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	}
}

// WithFolderLimit caps how many messages are loaded per folder.
func WithFolderLimit(n int) ServiceOption {
	return func(s *Service) { s.limit = n }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service over client and the cache st.
func NewService(client Client, st store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		client:  client,
		store:   st,
		limiter: rate.NewLimiter(rate.Inf, 0),
		limit:   500,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListFolders returns the account's folders. Offline, the cached list is
// returned together with an offline error.
func (s *Service) ListFolders(ctx context.Context) ([]model.Folder, error) {
	folders, err := s.client.ListFolders(ctx)
	if err != nil {
		if !IsOffline(err) {
			return nil, fmt.Errorf("listing folders: %w", err)
		}
		cached, cacheErr := s.store.GetFolders(ctx)
		if cacheErr != nil {
			s.log.Warn().Err(cacheErr).Msg("reading cached folders")
		}
		if len(cached) == 0 {
			cached = []model.Folder{{Path: "INBOX", Name: "INBOX", Type: model.FolderTypeInbox}}
		}
		return cached, err
	}

	if err := s.store.UpsertFolders(ctx, folders); err != nil {
		s.log.Warn().Err(err).Msg("caching folders")
	}
	return folders, nil
}

// OpenFolder loads the newest messages of folder. Offline, the cached
// messages are returned together with an offline error.
func (s *Service) OpenFolder(ctx context.Context, folder *model.Folder) ([]*model.Message, error) {
	msgs, err := s.client.FetchEnvelopes(ctx, folder.Path, s.limit, 0)
	if err != nil {
		if !IsOffline(err) {
			return nil, fmt.Errorf("opening %s: %w", folder.Path, err)
		}
		cached, cacheErr := s.store.GetMessages(ctx, folder.Path, s.limit)
		if cacheErr != nil {
			s.log.Warn().Err(cacheErr).Str("folder", folder.Path).Msg("reading cached messages")
		}
		s.attachCachedBodies(ctx, folder.Path, cached)
		return cached, err
	}

	if err := s.store.UpsertMessages(ctx, folder.Path, msgs); err != nil {
		s.log.Warn().Err(err).Str("folder", folder.Path).Msg("caching messages")
	}
	s.attachCachedBodies(ctx, folder.Path, msgs)
	return msgs, nil
}

// FetchNew returns messages in folder above the highest cached uid. The
// first call for a folder with an empty cache primes it and reports
// nothing as new.
func (s *Service) FetchNew(ctx context.Context, folder *model.Folder) ([]*model.Message, error) {
	since, err := s.store.MaxUID(ctx, folder.Path)
	if err != nil {
		return nil, fmt.Errorf("reading max uid for %s: %w", folder.Path, err)
	}

	msgs, err := s.client.FetchEnvelopes(ctx, folder.Path, s.limit, since)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertMessages(ctx, folder.Path, msgs); err != nil {
		s.log.Warn().Err(err).Str("folder", folder.Path).Msg("caching new messages")
	}
	if since == 0 {
		return nil, nil
	}
	return msgs, nil
}

// GetBody returns the body of message uid, from the cache when present.
// Concurrent requests for the same message share one fetch.
func (s *Service) GetBody(ctx context.Context, folder *model.Folder, uid uint32) (*model.Body, error) {
	key := folder.Path + "/" + strconv.FormatUint(uint64(uid), 10)

	v, err, _ := s.bodies.Do(key, func() (any, error) {
		cached, err := s.store.GetBody(ctx, folder.Path, uid)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Str("folder", folder.Path).Uint32("uid", uid).Msg("reading cached body")
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting to fetch body %d: %w", uid, err)
		}

		body, err := s.client.FetchBody(ctx, folder.Path, uid)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveBody(ctx, folder.Path, uid, body); err != nil {
			s.log.Warn().Err(err).Str("folder", folder.Path).Uint32("uid", uid).Msg("caching body")
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Body), nil
}

// MarkMessage sets or clears \Seen on the server and in the cache.
func (s *Service) MarkMessage(ctx context.Context, folder *model.Folder, uid uint32, unread bool) error {
	if err := s.store.SetUnread(ctx, folder.Path, uid, unread); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Err(err).Str("folder", folder.Path).Uint32("uid", uid).Msg("caching read state")
	}
	if err := s.client.SetFlags(ctx, folder.Path, uid, []imap.Flag{imap.FlagSeen}, !unread); err != nil {
		return fmt.Errorf("marking %s/%d: %w", folder.Path, uid, err)
	}
	return nil
}

// FlagMessage sets or clears \Flagged on the server and in the cache.
func (s *Service) FlagMessage(ctx context.Context, folder *model.Folder, uid uint32, flagged bool) error {
	if err := s.store.SetFlagged(ctx, folder.Path, uid, flagged); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn().Err(err).Str("folder", folder.Path).Uint32("uid", uid).Msg("caching flag")
	}
	if err := s.client.SetFlags(ctx, folder.Path, uid, []imap.Flag{imap.FlagFlagged}, flagged); err != nil {
		return fmt.Errorf("flagging %s/%d: %w", folder.Path, uid, err)
	}
	return nil
}

// attachCachedBodies fills Body for messages whose body is already cached.
func (s *Service) attachCachedBodies(ctx context.Context, folder string, msgs []*model.Message) {
	for _, m := range msgs {
		if m.Body != nil {
			continue
		}
		body, err := s.store.GetBody(ctx, folder, m.UID)
		if err == nil {
			m.Body = body
		}
	}
}
