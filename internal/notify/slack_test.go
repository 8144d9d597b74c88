package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

type fakeSlack struct {
	channel string
	called  int
	err     error
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.called++
	f.channel = channelID
	return channelID, "ts", f.err
}

func TestWritePendingPosts(t *testing.T) {
	fake := &fakeSlack{}
	n := &SlackNotifier{client: fake, channel: "#approvals"}
	n.WritePending(context.Background(), "E-001", "Maria Lindqvist", "This will create a vacation request.")
	if fake.called != 1 {
		t.Fatalf("expected one post, got %d", fake.called)
	}
	if fake.channel != "#approvals" {
		t.Fatalf("wrong channel: %q", fake.channel)
	}
}

func TestWritePendingSwallowsErrors(t *testing.T) {
	fake := &fakeSlack{err: errors.New("channel_not_found")}
	n := &SlackNotifier{client: fake, channel: "#approvals"}
	// Must not panic or propagate.
	n.WritePending(context.Background(), "E-001", "Maria", "explanation")
	if fake.called != 1 {
		t.Fatalf("expected one attempt, got %d", fake.called)
	}
}

func TestNewSlackNotifierOptional(t *testing.T) {
	if n := NewSlackNotifier("", "#approvals", nil); n != nil {
		t.Fatal("empty token should disable the notifier")
	}
	if n := NewSlackNotifier("xoxb-test", "", nil); n != nil {
		t.Fatal("empty channel should disable the notifier")
	}
	n := NewSlackNotifier("xoxb-test", "#approvals", nil)
	if n == nil {
		t.Fatal("expected notifier")
	}
	if !strings.HasPrefix(n.channel, "#") {
		t.Fatalf("channel not kept: %q", n.channel)
	}
}
