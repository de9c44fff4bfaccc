package domain

// Message is an outbound message the bot sends as a reply. The set of
// variants mirrors what the platform can render.
type Message interface {
	isMessage()
}

type TextMessage struct {
	Text string
}

type StickerMessage struct {
	PackageID string
	StickerID string
}

// ImageMessage references the stored original and a preview thumbnail,
// both as externally fetchable URLs.
type ImageMessage struct {
	OriginalURL string
	PreviewURL  string
}

type AudioMessage struct {
	URL            string
	DurationMillis int64
}

type VideoMessage struct {
	OriginalURL string
	PreviewURL  string
}

type LocationMessage struct {
	Title     string
	Address   string
	Latitude  float64
	Longitude float64
}

// TemplateMessage is a structured, platform-rendered message (buttons,
// confirm, carousel, image carousel). AltText is shown on clients that
// cannot render the template.
type TemplateMessage struct {
	AltText  string
	Template Template
}

// ImagemapMessage overlays tappable regions on a single large image.
type ImagemapMessage struct {
	BaseURL string
	AltText string
	Width   int
	Height  int
	Actions []ImagemapAction
}

func (TextMessage) isMessage()     {}
func (StickerMessage) isMessage()  {}
func (ImageMessage) isMessage()    {}
func (AudioMessage) isMessage()    {}
func (VideoMessage) isMessage()    {}
func (LocationMessage) isMessage() {}
func (TemplateMessage) isMessage() {}
func (ImagemapMessage) isMessage() {}

// Template is the closed set of template layouts.
type Template interface {
	isTemplate()
}

type ConfirmTemplate struct {
	Text    string
	Actions []Action // by convention exactly two: yes / no
}

type ButtonsTemplate struct {
	ThumbnailURL string
	Title        string
	Text         string
	Actions      []Action
}

type CarouselTemplate struct {
	Columns []CarouselColumn
}

type CarouselColumn struct {
	ThumbnailURL string
	Title        string
	Text         string
	Actions      []Action
}

type ImageCarouselTemplate struct {
	Columns []ImageCarouselColumn
}

type ImageCarouselColumn struct {
	ImageURL string
	Action   Action
}

func (ConfirmTemplate) isTemplate()       {}
func (ButtonsTemplate) isTemplate()       {}
func (CarouselTemplate) isTemplate()      {}
func (ImageCarouselTemplate) isTemplate() {}

// Action is a tappable action inside a template.
type Action interface {
	isAction()
}

type MessageAction struct {
	Label string
	Text  string
}

type URIAction struct {
	Label string
	URI   string
}

type PostbackAction struct {
	Label       string
	Data        string
	DisplayText string // optional text shown in the chat when tapped
}

// DatetimePickerAction opens a date/time picker. Mode is one of "date",
// "time", or "datetime"; Initial/Max/Min use the mode's literal format.
type DatetimePickerAction struct {
	Label   string
	Data    string
	Mode    string
	Initial string
	Max     string
	Min     string
}

func (MessageAction) isAction()        {}
func (URIAction) isAction()            {}
func (PostbackAction) isAction()       {}
func (DatetimePickerAction) isAction() {}

// ImagemapAction is a tappable region of an imagemap message.
type ImagemapAction interface {
	isImagemapAction()
}

type ImagemapArea struct {
	X      int
	Y      int
	Width  int
	Height int
}

type URIImagemapAction struct {
	URI  string
	Area ImagemapArea
}

type MessageImagemapAction struct {
	Text string
	Area ImagemapArea
}

func (URIImagemapAction) isImagemapAction()     {}
func (MessageImagemapAction) isImagemapAction() {}
