package ports

// TemplateEngine renders generated source from a template and its data.
type TemplateEngine interface {
	// Render executes raw with data bound to the template's dot.
	Render(raw []byte, data map[string]any) ([]byte, error)
}
