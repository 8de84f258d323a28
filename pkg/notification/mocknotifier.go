package notification

import "sync"

// MockNotifier captures sent notices for tests.
type MockNotifier struct {
	mu    sync.Mutex
	Sent  []NotificationData
	Types []NoticeType
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, notification)
	m.Types = append(m.Types, noticeType)
	return nil
}

// LastCode returns the "Code" template datum of the most recent notice, or
// the empty string if nothing was sent.
func (m *MockNotifier) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1].Data["Code"]
}
