package projections

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"testing"
)

// TestQueryGetTopicList tests pinning and hidden topic visibility.
func TestQueryGetTopicList(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		viewer  Viewer
		q       url.Values
		wantIDs []string
	}{
		{name: "referee skips hidden", viewer: refereeViewer("r2"), q: url.Values{}, wantIDs: []string{"t1", "t3"}},
		{name: "admin sees hidden", viewer: adminViewer, q: url.Values{}, wantIDs: []string{"t1", "t3", "t2"}},
		{name: "category filter", viewer: refereeViewer("r2"), q: url.Values{"category": {"learning"}}, wantIDs: []string{"t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := QueryGetTopicList(context.Background(), ListQuery{
				Viewer: tt.viewer,
				Params: listParams(tt.q, TopicListFilterKeys),
			}, f.forum)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var got []string
			for _, topic := range page.Items {
				got = append(got, topic.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("topics = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

// TestQueryGetThread tests rendering and per-viewer edit rights.
func TestQueryGetThread(t *testing.T) {
	f := newFixture(t)

	thread, err := QueryGetThread(context.Background(), GetThreadQuery{Viewer: refereeViewer("r1"), TopicID: "t3"}, f.forum)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if !strings.Contains(thread.HTML, "<strong>offside</strong>") {
		t.Errorf("expected rendered emphasis, got %q", thread.HTML)
	}
	if strings.Contains(thread.HTML, "<script>") {
		t.Errorf("raw HTML leaked into %q", thread.HTML)
	}
	if thread.CanEdit {
		t.Error("r1 should not edit r2's topic")
	}
	if len(thread.Replies) != 1 {
		t.Fatalf("expected 1 visible reply, got %d", len(thread.Replies))
	}
	if !strings.Contains(thread.Replies[0].HTML, "<del>no</del>") || !thread.Replies[0].CanEdit {
		t.Errorf("unexpected reply %+v", thread.Replies[0])
	}

	thread, err = QueryGetThread(context.Background(), GetThreadQuery{Viewer: adminViewer, TopicID: "t3"}, f.forum)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(thread.Replies) != 2 || !thread.CanEdit {
		t.Errorf("admin should see both replies and edit, got %d replies", len(thread.Replies))
	}
}

// TestQueryGetThread_HiddenTopic tests that hidden topics look missing to non-admins.
func TestQueryGetThread_HiddenTopic(t *testing.T) {
	f := newFixture(t)
	_, err := QueryGetThread(context.Background(), GetThreadQuery{Viewer: refereeViewer("r2"), TopicID: "t2"}, f.forum)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	if _, err := QueryGetThread(context.Background(), GetThreadQuery{Viewer: adminViewer, TopicID: "t2"}, f.forum); err != nil {
		t.Errorf("admin should open hidden topic: %v", err)
	}
}

// TestRenderMarkdown tests that raw HTML never passes through.
func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("hello <img src=x onerror=alert(1)> *world*")
	if strings.Contains(out, "<img") {
		t.Errorf("raw HTML should be dropped: %q", out)
	}
	if !strings.Contains(out, "<em>world</em>") {
		t.Errorf("expected emphasis: %q", out)
	}
}
