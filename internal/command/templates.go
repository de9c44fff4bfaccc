package command

import (
	"context"

	"sinkbot/internal/domain"
)

func (r *Router) confirmCmd(_ context.Context, _ domain.Source) (domain.Plan, error) {
	return domain.Plan{Messages: []domain.Message{
		domain.TemplateMessage{
			AltText: "Confirm alt text",
			Template: domain.ConfirmTemplate{
				Text: "Do it?",
				Actions: []domain.Action{
					domain.MessageAction{Label: "Yes", Text: "Yes!"},
					domain.MessageAction{Label: "No", Text: "No!"},
				},
			},
		},
	}}, nil
}

func (r *Router) buttonsCmd(_ context.Context, _ domain.Source) (domain.Plan, error) {
	return domain.Plan{Messages: []domain.Message{
		domain.TemplateMessage{
			AltText: "Button alt text",
			Template: domain.ButtonsTemplate{
				ThumbnailURL: r.buttonsImageURL(),
				Title:        "My button sample",
				Text:         "Hello, my button",
				Actions: []domain.Action{
					domain.URIAction{Label: "Go to line.me", URI: "https://line.me"},
					domain.PostbackAction{Label: "Say hello1", Data: "hello こんにちは"},
					domain.PostbackAction{Label: "言 hello2", Data: "hello こんにちは", DisplayText: "hello こんにちは"},
					domain.MessageAction{Label: "Say message", Text: "Rice=米"},
				},
			},
		},
	}}, nil
}

func (r *Router) carouselCmd(_ context.Context, _ domain.Source) (domain.Plan, error) {
	imageURL := r.buttonsImageURL()
	return domain.Plan{Messages: []domain.Message{
		domain.TemplateMessage{
			AltText: "Carousel alt text",
			Template: domain.CarouselTemplate{
				Columns: []domain.CarouselColumn{
					{
						ThumbnailURL: imageURL,
						Title:        "hoge",
						Text:         "fuga",
						Actions: []domain.Action{
							domain.URIAction{Label: "Go to line.me", URI: "https://line.me"},
							domain.URIAction{Label: "Go to line.me", URI: "https://line.me"},
							domain.PostbackAction{Label: "Say hello1", Data: "hello こんにちは"},
						},
					},
					{
						ThumbnailURL: imageURL,
						Title:        "hoge",
						Text:         "fuga",
						Actions: []domain.Action{
							domain.PostbackAction{Label: "言 hello2", Data: "hello こんにちは", DisplayText: "hello こんにちは"},
							domain.PostbackAction{Label: "言 hello2", Data: "hello こんにちは", DisplayText: "hello こんにちは"},
							domain.MessageAction{Label: "Say message", Text: "Rice=米"},
						},
					},
					{
						ThumbnailURL: imageURL,
						Title:        "Datetime Picker",
						Text:         "Please select a date, time or datetime",
						Actions: []domain.Action{
							domain.DatetimePickerAction{
								Label:   "Datetime",
								Data:    "action=sel",
								Mode:    "datetime",
								Initial: "2017-06-18T06:15",
								Max:     "2100-12-31T23:59",
								Min:     "1900-01-01T00:00",
							},
							domain.DatetimePickerAction{
								Label:   "Date",
								Data:    "action=sel&only=date",
								Mode:    "date",
								Initial: "2017-06-18",
								Max:     "2100-12-31",
								Min:     "1900-01-01",
							},
							domain.DatetimePickerAction{
								Label:   "Time",
								Data:    "action=sel&only=time",
								Mode:    "time",
								Initial: "06:15",
								Max:     "23:59",
								Min:     "00:00",
							},
						},
					},
				},
			},
		},
	}}, nil
}

func (r *Router) imageCarouselCmd(_ context.Context, _ domain.Source) (domain.Plan, error) {
	imageURL := r.buttonsImageURL()
	return domain.Plan{Messages: []domain.Message{
		domain.TemplateMessage{
			AltText: "ImageCarousel alt text",
			Template: domain.ImageCarouselTemplate{
				Columns: []domain.ImageCarouselColumn{
					{
						ImageURL: imageURL,
						Action:   domain.URIAction{Label: "Goto line.me", URI: "https://line.me"},
					},
					{
						ImageURL: imageURL,
						Action:   domain.MessageAction{Label: "Say message", Text: "Rice=米"},
					},
					{
						ImageURL: imageURL,
						Action:   domain.PostbackAction{Label: "言 hello2", Data: "hello こんにちは", DisplayText: "hello こんにちは"},
					},
				},
			},
		},
	}}, nil
}

// imagemapCmd replies with a fixed 1040x1040 canvas split into four equal
// quadrants: three store links and one message region.
func (r *Router) imagemapCmd(_ context.Context, _ domain.Source) (domain.Plan, error) {
	return domain.Plan{Messages: []domain.Message{
		domain.ImagemapMessage{
			BaseURL: r.baseURL + "/static/rich",
			AltText: "This is alt text",
			Width:   1040,
			Height:  1040,
			Actions: []domain.ImagemapAction{
				domain.URIImagemapAction{
					URI:  "https://store.line.me/family/manga/en",
					Area: domain.ImagemapArea{X: 0, Y: 0, Width: 520, Height: 520},
				},
				domain.URIImagemapAction{
					URI:  "https://store.line.me/family/music/en",
					Area: domain.ImagemapArea{X: 520, Y: 0, Width: 520, Height: 520},
				},
				domain.URIImagemapAction{
					URI:  "https://store.line.me/family/play/en",
					Area: domain.ImagemapArea{X: 0, Y: 520, Width: 520, Height: 520},
				},
				domain.MessageImagemapAction{
					Text: "URANAI!",
					Area: domain.ImagemapArea{X: 520, Y: 520, Width: 520, Height: 520},
				},
			},
		},
	}}, nil
}

func (r *Router) buttonsImageURL() string {
	return r.baseURL + "/static/buttons/1040.jpg"
}
