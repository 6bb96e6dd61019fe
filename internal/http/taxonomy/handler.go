package taxonomy

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/fisly/internal/http/render"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

type Handler struct {
	tax *taxonomy.Taxonomy
}

func NewHandler(tax *taxonomy.Taxonomy) *Handler {
	return &Handler{tax: tax}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.tree)
	r.Get("/{id}", h.node)
}

type nodeResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	NameEN   string         `json:"name_en,omitempty"`
	Level    string         `json:"level"`
	Color    string         `json:"color,omitempty"`
	Icon     string         `json:"icon,omitempty"`
	Children []nodeResponse `json:"children,omitempty"`
}

type treeResponse struct {
	Nodes       int            `json:"nodes"`
	FallbackID  string         `json:"fallback_id"`
	Departments []nodeResponse `json:"departments"`
}

type detailResponse struct {
	nodeResponse
	Path []nodeResponse `json:"path"`
}

func toResponse(n taxonomy.Node) nodeResponse {
	return nodeResponse{
		ID:     n.ID,
		Name:   n.Name,
		NameEN: n.NameEN,
		Level:  n.Level.String(),
		Color:  n.Color,
		Icon:   n.Icon,
	}
}

// subtree renders n with all of its descendants.
func (h *Handler) subtree(n taxonomy.Node) nodeResponse {
	resp := toResponse(n)
	for _, c := range h.tax.Children(n.ID) {
		resp.Children = append(resp.Children, h.subtree(c))
	}

	return resp
}

func (h *Handler) tree(w http.ResponseWriter, _ *http.Request) {
	resp := treeResponse{
		Nodes:      h.tax.Len(),
		FallbackID: h.tax.Fallback().ID,
	}

	for _, d := range h.tax.Departments() {
		resp.Departments = append(resp.Departments, h.subtree(d))
	}

	render.JSON(w, http.StatusOK, resp)
}

// node answers with one node, its direct children and the breadcrumb from
// its department down to it.
func (h *Handler) node(w http.ResponseWriter, r *http.Request) {
	n, ok := h.tax.Node(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	resp := detailResponse{nodeResponse: toResponse(n)}

	for _, c := range h.tax.Children(n.ID) {
		resp.Children = append(resp.Children, toResponse(c))
	}

	for _, p := range h.tax.Path(n.ID) {
		resp.Path = append(resp.Path, toResponse(p))
	}

	render.JSON(w, http.StatusOK, resp)
}
