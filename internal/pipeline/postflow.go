package pipeline

import (
	"regexp"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
)

// FlowStage enumerates the steps of the post conversation.
type FlowStage int

const (
	// StageComment: waiting for the comment text.
	StageComment FlowStage = iota + 1
	// StageHashtags: waiting for the hashtag text.
	StageHashtags
	// StageProcessing: the upload has been handed to the browser session.
	StageProcessing
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// PostFlow tracks one chat's two-step post conversation. It is created
// when the Post action fires and deleted when the upload is handed off.
// There is no abandonment timeout: a chat that never answers keeps its
// flow until it posts again.
type PostFlow struct {
	Stage        FlowStage
	VideoPath    string
	Comment      string
	HashtagsRaw  string
	PromptMsgIDs []int
}

// NewPostFlow starts a flow for the artifact at path.
func NewPostFlow(path string) *PostFlow {
	return &PostFlow{Stage: StageComment, VideoPath: path}
}

// SubmitComment records the comment and advances to the hashtag prompt.
// Returns false when the flow is not waiting for a comment.
func (f *PostFlow) SubmitComment(text string) bool {
	if f.Stage != StageComment {
		return false
	}
	f.Comment = text
	f.Stage = StageHashtags
	return true
}

// SubmitHashtags records the hashtag text, advances to processing and
// returns the assembled post request. Returns false when the flow is not
// waiting for hashtags.
func (f *PostFlow) SubmitHashtags(text string) (domain.PostRequest, bool) {
	if f.Stage != StageHashtags {
		return domain.PostRequest{}, false
	}
	f.HashtagsRaw = text
	f.Stage = StageProcessing

	var tags []string
	for _, t := range whitespaceRe.Split(text, -1) {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return domain.PostRequest{
		VideoPath: f.VideoPath,
		Comment:   f.Comment,
		Hashtags:  tags,
	}, true
}

// TakePromptIDs returns the outstanding prompt message IDs and clears the
// list, so the caller can delete them from the chat.
func (f *PostFlow) TakePromptIDs() []int {
	ids := f.PromptMsgIDs
	f.PromptMsgIDs = nil
	return ids
}

// AddPromptID remembers a prompt message for later cleanup.
func (f *PostFlow) AddPromptID(id int) {
	f.PromptMsgIDs = append(f.PromptMsgIDs, id)
}
