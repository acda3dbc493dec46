package slackbot

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/slack-go/slack"

	"github.com/clementinebot/clementine/internal/config"
	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/rooms"
	"github.com/clementinebot/clementine/internal/store"
)

// apiCall records one outbound Slack call made by a handler.
type apiCall struct {
	method  string
	channel string
	user    string
	ts      string
	opts    []slack.MsgOption
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall

	users         map[string]*slack.User
	userInfoCalls int
	userInfoErr   error

	historyResp *slack.GetConversationHistoryResponse
	historyErr  error
	replies     []slack.Message
	repliesErr  error

	postErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{users: make(map[string]*slack.User)}
}

func (f *fakeAPI) record(c apiCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) AuthTest() (*slack.AuthTestResponse, error) {
	return &slack.AuthTestResponse{UserID: "UBOT"}, nil
}

func (f *fakeAPI) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.record(apiCall{method: "PostMessage", channel: channelID, opts: options})
	if f.postErr != nil {
		return "", "", f.postErr
	}
	return channelID, "1712345100.000100", nil
}

func (f *fakeAPI) UpdateMessage(channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error) {
	f.record(apiCall{method: "UpdateMessage", channel: channelID, ts: timestamp, opts: options})
	return channelID, timestamp, "", nil
}

func (f *fakeAPI) PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error) {
	f.record(apiCall{method: "PostEphemeral", channel: channelID, user: userID, opts: options})
	return "1712345100.000200", nil
}

func (f *fakeAPI) GetUserInfoContext(_ context.Context, user string) (*slack.User, error) {
	f.mu.Lock()
	f.userInfoCalls++
	f.mu.Unlock()
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	if u, ok := f.users[user]; ok {
		return u, nil
	}
	return &slack.User{ID: user}, nil
}

func (f *fakeAPI) GetConversationHistoryContext(_ context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	f.record(apiCall{method: "GetConversationHistory", channel: params.ChannelID, ts: params.Cursor})
	return f.historyResp, f.historyErr
}

func (f *fakeAPI) GetConversationRepliesContext(_ context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	f.record(apiCall{method: "GetConversationReplies", channel: params.ChannelID, ts: params.Timestamp})
	return f.replies, false, "", f.repliesErr
}

// optionValues applies recorded MsgOptions the way the client would and
// returns the resulting form values for assertions.
func optionValues(t *testing.T, opts []slack.MsgOption) url.Values {
	t.Helper()
	_, values, err := slack.UnsafeApplyMsgOptions("tok", "C", slack.APIURL, opts...)
	if err != nil {
		t.Fatalf("apply msg options: %v", err)
	}
	return values
}

type fakeAnswerer struct {
	mu     sync.Mutex
	answer *qa.Answer
	err    error
	calls  int
	last   Question
}

func (f *fakeAnswerer) Answer(_ context.Context, q Question) (*qa.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = q
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeRecorder struct {
	err      error
	calls    int
	answerID string
	userID   string
	verdict  string
}

func (f *fakeRecorder) Record(_ context.Context, answerID, userID string, v feedback.Verdict) error {
	f.calls++
	f.answerID = answerID
	f.userID = userID
	f.verdict = string(v)
	return f.err
}

type memRoomStore struct {
	mu   sync.Mutex
	rows map[string]store.RoomConfigData
}

func newMemRoomStore() *memRoomStore {
	return &memRoomStore{rows: make(map[string]store.RoomConfigData)}
}

func (m *memRoomStore) Get(_ context.Context, roomID string) (*store.RoomConfigData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[roomID]
	if !ok {
		return nil, nil
	}
	cp := row
	return &cp, nil
}

func (m *memRoomStore) Put(_ context.Context, data *store.RoomConfigData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[data.RoomID] = *data
	return nil
}

func (m *memRoomStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

// newTestRuntime wires a Runtime around fakes, skipping the socket.
func newTestRuntime(api *fakeAPI, ans *fakeAnswerer, rec *fakeRecorder) *Runtime {
	cfg := config.Default()
	return &Runtime{
		api:       api,
		answerer:  ans,
		rooms:     rooms.NewService(newMemRoomStore(), cfg.Context),
		tracker:   rec,
		botName:   cfg.BotName,
		botUserID: "UBOT",
	}
}
