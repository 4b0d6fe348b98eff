package mail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/maillist/internal/model"
)

var dummySenders = []model.Address{
	{Name: "Max Mustermann", Address: "max@example.com"},
	{Name: "Erika Musterfrau", Address: "erika@example.com"},
	{Address: "noreply@builds.example.org"},
	{Name: "Ada Lovelace", Address: "ada@example.net"},
	{Name: "Linus", Address: "linus@example.net"},
}

var dummySubjects = []string{
	"Quarterly report",
	"Re: lunch on friday?",
	"Build #%d failed",
	"Your invoice",
	"Meeting notes",
	"Re: Re: the new office",
	"Welcome aboard",
}

// DummyService serves generated folders and messages for dev mode. Every
// call returns fresh copies so callers may mutate what they receive.
type DummyService struct {
	mu       sync.Mutex
	folders  []model.Folder
	messages map[string][]model.Message
	nextUID  uint32
	now      func() time.Time
}

// NewDummyService creates a DummyService with n messages in every folder.
func NewDummyService(n int) *DummyService {
	d := &DummyService{
		folders: []model.Folder{
			{Path: "INBOX", Name: "INBOX", Type: model.FolderTypeInbox},
			{Path: "Sent", Name: "Sent", Type: model.FolderTypeSent},
			{Path: "Archive", Name: "Archive", Type: model.FolderTypeArchive},
		},
		messages: make(map[string][]model.Message),
		now:      time.Now,
	}
	for _, f := range d.folders {
		for i := 0; i < n; i++ {
			d.messages[f.Path] = append(d.messages[f.Path], d.generate())
		}
	}
	return d
}

// DummyMessages returns n generated messages with uids n..1.
func DummyMessages(n int) []*model.Message {
	d := &DummyService{now: time.Now}
	out := make([]*model.Message, 0, n)
	for i := 0; i < n; i++ {
		m := d.generate()
		out = append(out, &m)
	}
	return out
}

// generate builds the next message. Callers hold mu when d is shared.
func (d *DummyService) generate() model.Message {
	d.nextUID++
	uid := d.nextUID
	i := int(uid)

	subject := dummySubjects[i%len(dummySubjects)]
	if subject == "Build #%d failed" {
		subject = fmt.Sprintf(subject, 1000+i)
	}
	text := fmt.Sprintf("Hello,\n\nthis is generated message %d.\n\nRegards", uid)

	return model.Message{
		UID:       uid,
		MessageID: "<" + uuid.NewString() + "@maillist.local>",
		From:      []model.Address{dummySenders[i%len(dummySenders)]},
		To:        []model.Address{{Name: "Me", Address: "me@example.com"}},
		Subject:   subject,
		Unread:    i%3 == 0,
		Flagged:   i%11 == 0,
		SentAt:    d.now().Add(-time.Duration(1000-i) * time.Hour),
		Body:      &model.Body{Text: text},
	}
}

// ListFolders returns the fixed dev folders.
func (d *DummyService) ListFolders(context.Context) ([]model.Folder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Folder(nil), d.folders...), nil
}

// OpenFolder returns copies of the folder's generated messages.
func (d *DummyService) OpenFolder(_ context.Context, folder *model.Folder) ([]*model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copies(d.messages[folder.Path]), nil
}

// FetchNew generates one new arrival per call in the inbox.
func (d *DummyService) FetchNew(_ context.Context, folder *model.Folder) ([]*model.Message, error) {
	if !folder.IsInbox() {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.generate()
	m.Unread = true
	m.SentAt = d.now()
	d.messages[folder.Path] = append(d.messages[folder.Path], m)
	return copies([]model.Message{m}), nil
}

// GetBody returns the generated body.
func (d *DummyService) GetBody(_ context.Context, folder *model.Folder, uid uint32) (*model.Body, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.messages[folder.Path] {
		if m.UID == uid {
			body := *m.Body
			return &body, nil
		}
	}
	return nil, fmt.Errorf("message UID %d not found in %s", uid, folder.Path)
}

// MarkMessage records the read state.
func (d *DummyService) MarkMessage(_ context.Context, folder *model.Folder, uid uint32, unread bool) error {
	return d.update(folder.Path, uid, func(m *model.Message) { m.Unread = unread })
}

// FlagMessage records the flag.
func (d *DummyService) FlagMessage(_ context.Context, folder *model.Folder, uid uint32, flagged bool) error {
	return d.update(folder.Path, uid, func(m *model.Message) { m.Flagged = flagged })
}

func (d *DummyService) update(folder string, uid uint32, fn func(*model.Message)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	msgs := d.messages[folder]
	for i := range msgs {
		if msgs[i].UID == uid {
			fn(&msgs[i])
			return nil
		}
	}
	return fmt.Errorf("message UID %d not found in %s", uid, folder)
}

func copies(msgs []model.Message) []*model.Message {
	out := make([]*model.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		if m.Body != nil {
			body := *m.Body
			m.Body = &body
		}
		out = append(out, &m)
	}
	return out
}
