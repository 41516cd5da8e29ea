package models

// Color is one of the fixed attachment color categories
type Color string

const (
	ColorBlue   Color = "#205081"
	ColorGreen  Color = "#14892c"
	ColorYellow Color = "#f6c342"
	ColorRed    Color = "#d04437"
)

// Notification is the chat payload relayed to the webhook endpoint
type Notification struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is one structured notification block
type Attachment struct {
	Fallback   string   `json:"fallback"`
	Pretext    string   `json:"pretext"`
	Title      string   `json:"title,omitempty"`
	TitleLink  string   `json:"title_link,omitempty"`
	Color      Color    `json:"color"`
	Fields     []Field  `json:"fields"`
	MarkdownIn []string `json:"mrkdwn_in,omitempty"`
}

// Field is a labelled value within an attachment. Short is a layout hint
// allowing two fields to share a row.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// AddField appends a field to the attachment
func (a *Attachment) AddField(title, value string, short bool) {
	a.Fields = append(a.Fields, Field{Title: title, Value: value, Short: short})
}

// Field returns the first field with the given title
func (a Attachment) Field(title string) (Field, bool) {
	for _, f := range a.Fields {
		if f.Title == title {
			return f, true
		}
	}
	return Field{}, false
}

// RelayResult is the outcome of a completed delivery
type RelayResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}
