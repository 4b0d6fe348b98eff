package model

import "strings"

// FolderType classifies a folder by its role.
type FolderType string

const (
	FolderTypeInbox   FolderType = "Inbox"
	FolderTypeSent    FolderType = "Sent"
	FolderTypeDrafts  FolderType = "Drafts"
	FolderTypeTrash   FolderType = "Trash"
	FolderTypeFlagged FolderType = "Flagged"
	FolderTypeJunk    FolderType = "Junk"
	FolderTypeArchive FolderType = "Archive"
	FolderTypeOther   FolderType = "Other"
)

// Folder is a mailbox and the messages loaded from it.
type Folder struct {
	// Path is the IMAP mailbox name, e.g. "INBOX" or "[Gmail]/Sent Mail".
	Path string `json:"path"`

	// Name is the last path segment, used for display.
	Name string `json:"name"`

	Type FolderType `json:"type"`

	// Messages is nil until the folder has been opened.
	Messages []*Message `json:"-"`
}

// IsInbox reports whether the folder is the designated inbox.
func (f *Folder) IsInbox() bool {
	return f != nil && f.Type == FolderTypeInbox
}

// Find returns the message with the given uid, or nil.
func (f *Folder) Find(uid uint32) *Message {
	if f == nil {
		return nil
	}
	for _, m := range f.Messages {
		if m.UID == uid {
			return m
		}
	}
	return nil
}

// Contains reports whether msg is one of the folder's messages.
func (f *Folder) Contains(msg *Message) bool {
	if f == nil || msg == nil {
		return false
	}
	for _, m := range f.Messages {
		if m == msg {
			return true
		}
	}
	return false
}

// Merge adds messages whose uid is not yet present and returns the ones
// that were added.
func (f *Folder) Merge(msgs []*Message) []*Message {
	seen := make(map[uint32]bool, len(f.Messages))
	for _, m := range f.Messages {
		seen[m.UID] = true
	}
	var added []*Message
	for _, m := range msgs {
		if m == nil || seen[m.UID] {
			continue
		}
		seen[m.UID] = true
		f.Messages = append(f.Messages, m)
		added = append(added, m)
	}
	return added
}

// FolderName returns the display name for a mailbox path given its
// hierarchy delimiter.
func FolderName(path string, delim rune) string {
	if delim == 0 {
		return path
	}
	if i := strings.LastIndex(path, string(delim)); i >= 0 {
		return path[i+1:]
	}
	return path
}
