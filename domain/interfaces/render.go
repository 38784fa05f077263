package interfaces

// ResponseRenderer converts captured response HTML into Markdown
type ResponseRenderer interface {
	Render(html string, baseURL string) (string, error)
}
