package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/maillist/internal/model"
)

// Client is the subset of IMAP operations the Service needs.
type Client interface {
	ListFolders(ctx context.Context) ([]model.Folder, error)
	FetchEnvelopes(ctx context.Context, folder string, limit int, sinceUID uint32) ([]*model.Message, error)
	FetchBody(ctx context.Context, folder string, uid uint32) (*model.Body, error)
	SetFlags(ctx context.Context, folder string, uid uint32, flags []imap.Flag, add bool) error
}

// IMAPClient wraps go-imap v2. Every operation opens its own connection.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(host string, port int, username, password string, tls bool) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     strconv.Itoa(port),
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.host, c.port)

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, classifyDial("connect", fmt.Errorf("connecting to IMAP %s: %w", addr, err))
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Username: c.username,
			Message:  fmt.Sprintf("authentication failed: %v", err),
		}
	}

	return client, nil
}

// ListFolders returns every mailbox on the server, classified by role.
func (c *IMAPClient) ListFolders(ctx context.Context) ([]model.Folder, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	boxes, err := client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}

	folders := make([]model.Folder, 0, len(boxes))
	for _, box := range boxes {
		if hasAttr(box.Attrs, imap.MailboxAttrNoSelect) {
			continue
		}
		folders = append(folders, model.Folder{
			Path: box.Mailbox,
			Name: model.FolderName(box.Mailbox, box.Delim),
			Type: folderType(box.Mailbox, box.Attrs),
		})
	}
	return folders, nil
}

// FetchEnvelopes selects folder and returns envelopes of the newest
// messages. With sinceUID > 0 only messages above that uid are returned.
func (c *IMAPClient) FetchEnvelopes(
	ctx context.Context,
	folder string,
	limit int,
	sinceUID uint32,
) ([]*model.Message, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{}
	if sinceUID > 0 {
		// Stop 0 is "*"; the server always returns the last message for
		// such a range, so results are filtered below as well.
		criteria.UID = []imap.UIDSet{{imap.UIDRange{Start: imap.UID(sinceUID + 1), Stop: 0}}}
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", folder, err)
	}

	var uids []imap.UID
	for _, uid := range searchData.AllUIDs() {
		if uint32(uid) > sinceUID {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// Take the most recent.
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:     true,
		Flags:        true,
		UID:          true,
		InternalDate: true,
	})
	defer fetchCmd.Close()

	var msgs []*model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		msgs = append(msgs, messageFromBuffer(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return msgs, fmt.Errorf("fetching envelopes from %s: %w", folder, err)
	}

	return msgs, nil
}

// FetchBody fetches and parses the full body of one message without
// setting \Seen.
func (c *IMAPClient) FetchBody(ctx context.Context, folder string, uid uint32) (*model.Body, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found in %s", uid, folder)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	body := &model.Body{}
	if raw := buf.FindBodySection(bodySection); raw != nil {
		body = parseBody(raw)
	}

	if err := fetchCmd.Close(); err != nil {
		return body, fmt.Errorf("closing fetch: %w", err)
	}

	return body, nil
}

// SetFlags adds or removes flags on a message.
func (c *IMAPClient) SetFlags(
	ctx context.Context,
	folder string,
	uid uint32,
	flags []imap.Flag,
	add bool,
) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}

	op := imap.StoreFlagsAdd
	if !add {
		op = imap.StoreFlagsDel
	}

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  flags,
	}, nil)

	return storeCmd.Close()
}

// messageFromBuffer maps fetched envelope data to a Message.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) *model.Message {
	msg := &model.Message{
		UID:    uint32(buf.UID),
		Unread: true,
		SentAt: buf.InternalDate,
	}

	if env := buf.Envelope; env != nil {
		msg.MessageID = env.MessageID
		msg.Subject = env.Subject
		if !env.Date.IsZero() {
			msg.SentAt = env.Date
		}
		msg.From = addresses(env.From)
		msg.To = addresses(env.To)
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			msg.Unread = false
		case imap.FlagFlagged:
			msg.Flagged = true
		}
	}

	return msg
}

func addresses(in []imap.Address) []model.Address {
	out := make([]model.Address, 0, len(in))
	for _, a := range in {
		if a.IsGroupStart() || a.IsGroupEnd() {
			continue
		}
		out = append(out, model.Address{Name: a.Name, Address: a.Addr()})
	}
	return out
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

// folderType classifies a mailbox from its SPECIAL-USE attributes.
func folderType(path string, attrs []imap.MailboxAttr) model.FolderType {
	if strings.EqualFold(path, "INBOX") {
		return model.FolderTypeInbox
	}
	for _, a := range attrs {
		switch a {
		case imap.MailboxAttrSent:
			return model.FolderTypeSent
		case imap.MailboxAttrDrafts:
			return model.FolderTypeDrafts
		case imap.MailboxAttrTrash:
			return model.FolderTypeTrash
		case imap.MailboxAttrFlagged:
			return model.FolderTypeFlagged
		case imap.MailboxAttrJunk:
			return model.FolderTypeJunk
		case imap.MailboxAttrArchive:
			return model.FolderTypeArchive
		}
	}
	return model.FolderTypeOther
}
