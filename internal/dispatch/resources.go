package dispatch

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/core/apperror"
)

const scheme = "lila://"

const (
	URIAllPersonas          = scheme + "personas/all"
	URIAllRelationships     = scheme + "relationships/all"
	URIEmotionalClimate     = scheme + "emotional_climate/current"
	URICommunities          = scheme + "relationships/communities"
	URIActiveGoals          = scheme + "goals/active"
	URIPersonaTemplate      = scheme + "personas/{persona_id}"
	URIRelationshipTemplate = scheme + "relationships/{persona1_id}/{persona2_id}"
	URIRecentTemplate       = scheme + "interactions/recent/{count}"
)

type resource struct {
	def    mcp.Resource
	handle server.ResourceHandlerFunc
}

type resourceTemplate struct {
	def    mcp.ResourceTemplate
	handle server.ResourceTemplateHandlerFunc
}

func (d *Dispatcher) resources() []resource {
	static := func(uri, name, desc string, fn func(ctx context.Context) (any, error)) resource {
		return resource{
			def: mcp.NewResource(uri, name,
				mcp.WithResourceDescription(desc),
				mcp.WithMIMEType("application/json"),
			),
			handle: func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				v, err := fn(ctx)
				return d.resourceResult(req.Params.URI, v, err)
			},
		}
	}

	return []resource{
		static(URIAllPersonas, "All personas",
			"Every persona with attachment style and personality traits",
			func(ctx context.Context) (any, error) { return d.engine.AllPersonas(ctx) }),
		static(URIAllRelationships, "All relationships",
			"Every relationship with trust, intimacy and strength, strongest first",
			func(ctx context.Context) (any, error) { return d.engine.AllRelationships(ctx) }),
		static(URIEmotionalClimate, "Emotional climate",
			"Averages and risk factors across all relationships",
			func(ctx context.Context) (any, error) { return d.engine.EmotionalClimate(ctx) }),
		static(URICommunities, "Relationship communities",
			"Clusters of personas joined by strong relationships",
			func(ctx context.Context) (any, error) { return d.engine.Communities(ctx) }),
		static(URIActiveGoals, "Active goals",
			"Relationship goals and their progress",
			func(ctx context.Context) (any, error) { return d.engine.ActiveGoals(ctx) }),
	}
}

func (d *Dispatcher) templates() []resourceTemplate {
	return []resourceTemplate{
		{
			def: mcp.NewResourceTemplate(URIPersonaTemplate, "Persona",
				mcp.WithTemplateDescription("A single persona by id"),
				mcp.WithTemplateMIMEType("application/json"),
			),
			handle: d.handlePersona,
		},
		{
			def: mcp.NewResourceTemplate(URIRelationshipTemplate, "Relationship",
				mcp.WithTemplateDescription("The relationship between two personas, in either order"),
				mcp.WithTemplateMIMEType("application/json"),
			),
			handle: d.handleRelationship,
		},
		{
			def: mcp.NewResourceTemplate(URIRecentTemplate, "Recent interactions",
				mcp.WithTemplateDescription("The most recently active relationships as interaction summaries (max 50)"),
				mcp.WithTemplateMIMEType("application/json"),
			),
			handle: d.handleRecent,
		},
	}
}

// segments returns the unescaped path segments of uri after prefix.
func segments(uri, prefix string) []string {
	rest := strings.TrimPrefix(uri, scheme+prefix)
	var out []string
	for _, s := range strings.Split(rest, "/") {
		if s == "" {
			continue
		}
		if u, err := url.PathUnescape(s); err == nil {
			s = u
		}
		out = append(out, s)
	}
	return out
}

func (d *Dispatcher) handlePersona(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	seg := segments(uri, "personas/")
	if len(seg) != 1 {
		return d.resourceResult(uri, nil, apperror.InvalidArgument("expected %s", URIPersonaTemplate))
	}
	v, err := d.engine.Persona(ctx, seg[0])
	return d.resourceResult(uri, v, err)
}

func (d *Dispatcher) handleRelationship(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	seg := segments(uri, "relationships/")
	if len(seg) != 2 {
		return d.resourceResult(uri, nil, apperror.InvalidArgument("expected %s", URIRelationshipTemplate))
	}
	v, err := d.engine.Relationship(ctx, seg[0], seg[1])
	return d.resourceResult(uri, v, err)
}

func (d *Dispatcher) handleRecent(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	seg := segments(uri, "interactions/recent/")
	limit := core.DefaultRecentLimit
	if len(seg) == 1 {
		n, err := strconv.Atoi(seg[0])
		if err != nil {
			return d.resourceResult(uri, nil, apperror.InvalidArgument("count must be an integer, got %q", seg[0]))
		}
		limit = n
	}
	v, err := d.engine.RecentInteractions(ctx, limit)
	return d.resourceResult(uri, v, err)
}
