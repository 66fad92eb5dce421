package projections

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"refdesk/internal/adapters/storage/forum"
	"refdesk/internal/application/listutil"
	domainForum "refdesk/internal/domain/forum"
)

// TopicListFilterKeys are the query parameters accepted by the topic list.
var TopicListFilterKeys = []string{"category"}

// mdRenderer renders forum posts. Raw HTML in the source is omitted
// (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify, extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts a post body to HTML, falling back to escaped text.
func RenderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return html.EscapeString(md)
	}
	return buf.String()
}

// QueryGetTopicList pages through topics, pinned first then by last activity.
// POST: hidden topics are listed for admins only
func QueryGetTopicList(ctx context.Context, query ListQuery, store ForumStore) (listutil.Page[domainForum.Topic], error) {
	filter := forum.TopicFilter{
		Category:      query.Params.Filters["category"],
		Search:        query.Params.Search,
		IncludeHidden: query.Viewer.IsAdmin(),
	}
	total, err := store.CountTopics(ctx, filter)
	if err != nil {
		return listutil.Page[domainForum.Topic]{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit, filter.Offset = info.PerPage, info.Offset()
	topics, err := store.ListTopics(ctx, filter)
	if err != nil {
		return listutil.Page[domainForum.Topic]{}, err
	}
	return listutil.NewPage(topics, info), nil
}

// RenderedReply is a reply with its HTML body.
type RenderedReply struct {
	domainForum.Reply
	HTML    string
	CanEdit bool
}

// Thread is a topic with its replies, rendered for display.
type Thread struct {
	Topic   domainForum.Topic
	HTML    string
	CanEdit bool
	Replies []RenderedReply
}

// GetThreadQuery identifies the topic to show.
type GetThreadQuery struct {
	Viewer  Viewer
	TopicID string
}

// QueryGetThread loads a topic and its replies with Markdown rendered to HTML.
// PRE: TopicID is non-empty
// POST: hidden topics and replies are only returned to admins
func QueryGetThread(ctx context.Context, query GetThreadQuery, store ForumStore) (Thread, error) {
	t, err := store.GetTopic(ctx, query.TopicID)
	if err != nil {
		return Thread{}, err
	}
	admin := query.Viewer.IsAdmin()
	if t.Hidden && !admin {
		return Thread{}, fmt.Errorf("topic not found: %w", sql.ErrNoRows)
	}
	replies, err := store.ListReplies(ctx, t.ID, admin)
	if err != nil {
		return Thread{}, fmt.Errorf("list replies: %w", err)
	}

	thread := Thread{
		Topic:   t,
		HTML:    RenderMarkdown(t.Body),
		CanEdit: t.CheckEdit(query.Viewer.ID, admin) == nil,
		Replies: make([]RenderedReply, 0, len(replies)),
	}
	for _, r := range replies {
		thread.Replies = append(thread.Replies, RenderedReply{
			Reply:   r,
			HTML:    RenderMarkdown(r.Body),
			CanEdit: r.CheckEdit(t, query.Viewer.ID, admin) == nil,
		})
	}
	return thread, nil
}
