package maillist

import (
	"context"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// OnExternalIDChange selects the message whose uid is id; an empty id
// clears the selection. Unknown or malformed ids select nothing.
//
// Outside dev mode a selection refreshes the sender's key, then decrypts
// the body and, for unread messages, marks them read. Reading a message
// in the inbox closes every pending new-mail notification.
func (m *Model) OnExternalIDChange(id string) tea.Cmd {
	id = strings.TrimSpace(id)
	if id == "" {
		m.selected = nil
		return nil
	}

	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		m.selected = nil
		return nil
	}

	msg := m.folder.Find(uint32(uid))
	m.selected = msg
	if msg == nil || m.opts.Dev {
		return nil
	}

	ks, gen, userID := m.keys, m.gen, msg.Sender().Address
	return func() tea.Msg {
		if ks == nil || userID == "" {
			return keyRefreshedMsg{gen: gen, uid: uint32(uid)}
		}
		err := ks.RefreshKeyForUserID(context.Background(), userID)
		return keyRefreshedMsg{gen: gen, uid: uint32(uid), err: err}
	}
}

func (m *Model) onKeyRefreshed(msg keyRefreshedMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	message := m.folder.Find(msg.uid)
	if message == nil {
		return nil
	}

	cmds := []tea.Cmd{
		m.handleErr("refreshing sender key", msg.err),
		m.decrypt(message),
	}

	if message.Unread {
		if m.folder.IsInbox() {
			m.tracker.CloseAll()
		}
		message.Unread = false
		svc, folder, uid := m.svc, m.folder, message.UID
		cmds = append(cmds, func() tea.Msg {
			err := svc.MarkMessage(context.Background(), folder, uid, false)
			return actionDoneMsg{op: "marking message read", err: err}
		})
	}

	return tea.Batch(cmds...)
}
