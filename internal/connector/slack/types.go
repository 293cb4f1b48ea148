package slack

// Channel is a Slack conversation the bot can see.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsChannel  bool   `json:"is_channel"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
	NumMembers int    `json:"num_members"`
	Topic      Topic  `json:"topic"`
	Purpose    Topic  `json:"purpose"`
}

// Topic holds a channel topic or purpose value.
type Topic struct {
	Value string `json:"value"`
}

// Message is a single channel message. ThreadTS is set when the message
// belongs to a thread; Replies is filled in by FetchMessages for thread
// parents.
type Message struct {
	Type       string `json:"type"`
	User       string `json:"user"`
	BotID      string `json:"bot_id"`
	Text       string `json:"text"`
	TS         string `json:"ts"`
	ThreadTS   string `json:"thread_ts"`
	ReplyCount int    `json:"reply_count"`
	Subtype    string `json:"subtype"`

	// Resolved display name of User, populated by the client.
	UserName string `json:"-"`

	Replies []Message `json:"-"`
}

// userInfo is the subset of users.info we care about.
type userInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Profile struct {
		DisplayName string `json:"display_name"`
		RealName    string `json:"real_name"`
	} `json:"profile"`
}

type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

type authTestResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	URL   string `json:"url"`
	Team  string `json:"team"`
	User  string `json:"user"`
}

type channelsResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error"`
	Channels         []Channel        `json:"channels"`
	ResponseMetadata responseMetadata `json:"response_metadata"`
}

type channelInfoResponse struct {
	OK      bool    `json:"ok"`
	Error   string  `json:"error"`
	Channel Channel `json:"channel"`
}

type historyResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error"`
	Messages         []Message        `json:"messages"`
	HasMore          bool             `json:"has_more"`
	ResponseMetadata responseMetadata `json:"response_metadata"`
}

type userInfoResponse struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error"`
	User  userInfo `json:"user"`
}

// Identity describes the authenticated bot, from auth.test.
type Identity struct {
	Team string
	User string
	URL  string
}
