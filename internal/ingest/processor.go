package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/weaverai/weaver/internal/connector/github"
	"github.com/weaverai/weaver/internal/connector/slack"
	"github.com/weaverai/weaver/internal/knowledge"
)

// Processor converts connector payloads into chunked documents.
type Processor struct {
	chunker *Chunker
}

// NewProcessor creates a Processor with the given chunk sizing.
func NewProcessor(chunkSize, chunkOverlap int) (*Processor, error) {
	chunker, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Processor{chunker: chunker}, nil
}

// ProcessIssues flattens GitHub issues with their comments into
// documents for userID.
func (p *Processor) ProcessIssues(userID, repo string, issues []github.Issue) []knowledge.Document {
	var docs []knowledge.Document
	for i := range issues {
		issue := &issues[i]
		text := issueText(issue.Title, issue.Body, issue.Comments)
		meta := map[string]string{
			"source_type": knowledge.SourceTypeGitHubIssue,
			"repo":        repo,
			"number":      strconv.Itoa(issue.Number),
			"title":       issue.Title,
			"author":      issue.User.Login,
			"state":       issue.State,
			"url":         issue.HTMLURL,
		}
		key := fmt.Sprintf("github:%s:issue:%d", repo, issue.Number)
		docs = append(docs, p.chunk(userID, key, text, meta)...)
	}
	return docs
}

// ProcessPullRequests flattens pull requests, their discussion, and
// their review comments into documents for userID.
func (p *Processor) ProcessPullRequests(userID, repo string, prs []github.PullRequest) []knowledge.Document {
	var docs []knowledge.Document
	for i := range prs {
		pr := &prs[i]
		comments := make([]github.Comment, 0, len(pr.Comments)+len(pr.ReviewComments))
		comments = append(comments, pr.Comments...)
		comments = append(comments, pr.ReviewComments...)

		text := issueText(pr.Title, pr.Body, comments)
		meta := map[string]string{
			"source_type": knowledge.SourceTypeGitHubPR,
			"repo":        repo,
			"number":      strconv.Itoa(pr.Number),
			"title":       pr.Title,
			"author":      pr.User.Login,
			"state":       pr.State,
			"merged":      strconv.FormatBool(pr.Merged),
			"url":         pr.HTMLURL,
		}
		key := fmt.Sprintf("github:%s:pr:%d", repo, pr.Number)
		docs = append(docs, p.chunk(userID, key, text, meta)...)
	}
	return docs
}

// ProcessMessages turns Slack messages (with inlined thread replies)
// into documents for userID. Messages whose cleaned text is empty are
// dropped.
func (p *Processor) ProcessMessages(userID, channelID, channelName string, messages []slack.Message) []knowledge.Document {
	var docs []knowledge.Document
	for i := range messages {
		msg := &messages[i]
		text := messageText(msg)
		if text == "" {
			continue
		}
		meta := map[string]string{
			"source_type": knowledge.SourceTypeSlackMessage,
			"channel":     channelName,
			"channel_id":  channelID,
			"ts":          msg.TS,
			"author":      authorName(msg),
		}
		key := fmt.Sprintf("slack:%s:%s", channelID, msg.TS)
		docs = append(docs, p.chunk(userID, key, text, meta)...)
	}
	return docs
}

// chunk cleans and splits text, stamping each chunk with its position
// and a stable ID derived from key.
func (p *Processor) chunk(userID, key, text string, meta map[string]string) []knowledge.Document {
	chunks := p.chunker.Split(CleanText(text))
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]knowledge.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docMeta := make(map[string]string, len(meta)+2)
		for k, v := range meta {
			docMeta[k] = v
		}
		docMeta["chunk_index"] = strconv.Itoa(i)
		docMeta["total_chunks"] = strconv.Itoa(len(chunks))

		docs = append(docs, knowledge.Document{
			ID:       DocumentID(key, i),
			UserID:   userID,
			Content:  chunk,
			Metadata: docMeta,
			CreateAt: now,
		})
	}
	return docs
}

// DocumentID derives a stable identifier from the source identity and
// chunk index. Re-ingesting the same source produces the same IDs, so
// updated content overwrites rather than duplicates.
func DocumentID(key string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", key, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

func issueText(title, body string, comments []github.Comment) string {
	var b strings.Builder
	b.WriteString(title)
	if body != "" {
		b.WriteString("\n\n")
		b.WriteString(body)
	}
	for i := range comments {
		c := &comments[i]
		if c.Body == "" {
			continue
		}
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%s: %s", c.User.Login, c.Body)
	}
	return b.String()
}

func messageText(msg *slack.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", authorName(msg), msg.Text)
	for i := range msg.Replies {
		reply := &msg.Replies[i]
		if reply.Text == "" {
			continue
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s: %s", authorName(reply), reply.Text)
	}
	text := CleanText(b.String())
	// A bare "author:" line means the message had no usable content.
	if strings.TrimSpace(strings.TrimPrefix(text, authorName(msg)+":")) == "" && len(msg.Replies) == 0 {
		return ""
	}
	return text
}

func authorName(msg *slack.Message) string {
	if msg.UserName != "" {
		return msg.UserName
	}
	if msg.User != "" {
		return msg.User
	}
	if msg.BotID != "" {
		return msg.BotID
	}
	return "unknown"
}
