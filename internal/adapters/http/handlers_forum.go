package web

import (
	"net/http"

	"refdesk/internal/application/listutil"
	"refdesk/internal/application/orchestrators"
	"refdesk/internal/application/projections"
)

func forumDeps() orchestrators.ForumDeps {
	return orchestrators.ForumDeps{
		ForumStore: stores.Forum,
		Audit:      stores.Audit,
		Metrics:    opts.Metrics,
		Now:        now,
	}
}

// handleListTopics handles GET /api/forum/topics?category=&q=
func handleListTopics(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page, err := projections.QueryGetTopicList(r.Context(), projections.ListQuery{
		Viewer: viewerFrom(sess),
		Params: listutil.ParseListParams(r.URL.Query(), projections.TopicListFilterKeys),
	}, stores.Forum)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleCreateTopic handles POST /api/forum/topics
func handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input struct {
		Category string
		Title    string
		Body     string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	t, err := orchestrators.ExecuteCreateTopic(r.Context(), orchestrators.CreateTopicInput{
		Category: input.Category,
		Title:    input.Title,
		Body:     input.Body,
		Actor:    actorFrom(r, sess),
	}, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleGetThread handles GET /api/forum/topics/{id}
func handleGetThread(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	thread, err := projections.QueryGetThread(r.Context(), projections.GetThreadQuery{
		Viewer:  viewerFrom(sess),
		TopicID: r.PathValue("id"),
	}, stores.Forum)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// handleEditTopic handles PUT /api/forum/topics/{id}
func handleEditTopic(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input struct {
		Title string
		Body  string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	t, err := orchestrators.ExecuteEditTopic(r.Context(), orchestrators.EditTopicInput{
		TopicID: r.PathValue("id"),
		Title:   input.Title,
		Body:    input.Body,
		Actor:   actorFrom(r, sess),
	}, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTopic handles DELETE /api/forum/topics/{id}
func handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeleteTopic(r.Context(), orchestrators.DeleteTopicInput{
		TopicID: r.PathValue("id"),
		Actor:   actorFrom(r, sess),
	}, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateReply handles POST /api/forum/topics/{id}/replies
func handleCreateReply(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input struct {
		Body string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	reply, err := orchestrators.ExecuteReply(r.Context(), orchestrators.ReplyInput{
		TopicID: r.PathValue("id"),
		Body:    input.Body,
		Actor:   actorFrom(r, sess),
	}, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

// handleEditReply handles PUT /api/forum/replies/{id}
func handleEditReply(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input struct {
		Body string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return
	}
	reply, err := orchestrators.ExecuteEditReply(r.Context(), orchestrators.EditReplyInput{
		ReplyID: r.PathValue("id"),
		Body:    input.Body,
		Actor:   actorFrom(r, sess),
	}, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// handleDeleteReply handles DELETE /api/forum/replies/{id}
func handleDeleteReply(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeleteReply(r.Context(), orchestrators.DeleteReplyInput{
		ReplyID: r.PathValue("id"),
		Actor:   actorFrom(r, sess),
	}, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeModeration(w http.ResponseWriter, r *http.Request) (orchestrators.ModerateInput, bool) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return orchestrators.ModerateInput{}, false
	}
	var input struct {
		Action string
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, r, err)
		return orchestrators.ModerateInput{}, false
	}
	return orchestrators.ModerateInput{ID: r.PathValue("id"), Action: input.Action, Actor: actorFrom(r, sess)}, true
}

// handleModerateTopic handles POST /api/forum/topics/{id}/moderate
func handleModerateTopic(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeModeration(w, r)
	if !ok {
		return
	}
	t, err := orchestrators.ExecuteModerateTopic(r.Context(), input, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleModerateReply handles POST /api/forum/replies/{id}/moderate
func handleModerateReply(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeModeration(w, r)
	if !ok {
		return
	}
	reply, err := orchestrators.ExecuteModerateReply(r.Context(), input, forumDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
