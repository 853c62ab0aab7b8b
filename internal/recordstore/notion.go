package recordstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
)

// Notion implements Store against the Notion API. Container schemas are
// fetched once per process and cached; the store is otherwise stateless.
type Notion struct {
	client *notionapi.Client
	logger *zap.Logger

	mu      sync.Mutex
	schemas map[string]*Schema
}

func NewNotion(apiKey string, logger *zap.Logger) *Notion {
	return &Notion{
		client:  notionapi.NewClient(notionapi.Token(apiKey)),
		logger:  logger,
		schemas: make(map[string]*Schema),
	}
}

func (n *Notion) Schema(ctx context.Context, databaseID string) (*Schema, error) {
	n.mu.Lock()
	if s, ok := n.schemas[databaseID]; ok {
		n.mu.Unlock()
		return s, nil
	}
	n.mu.Unlock()

	db, err := n.client.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, fmt.Errorf("retrieve database %s: %w", databaseID, err)
	}

	types := make(map[string]PropType, len(db.Properties))
	for name, cfg := range db.Properties {
		types[name] = PropType(cfg.GetType())
	}
	schema := NewSchema(richTextPlain(db.Title), types)

	n.mu.Lock()
	n.schemas[databaseID] = schema
	n.mu.Unlock()
	return schema, nil
}

func (n *Notion) FindByRegistryCode(ctx context.Context, databaseID, property, code string) (*Page, error) {
	schema, err := n.Schema(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	filter, err := codeFilter(schema, property, code)
	if err != nil {
		return nil, err
	}
	return n.findFirst(ctx, databaseID, filter)
}

func (n *Notion) FindByTitle(ctx context.Context, databaseID, property, title string) (*Page, error) {
	return n.findFirst(ctx, databaseID, titleEquals(property, title))
}

func (n *Notion) CountByTitle(ctx context.Context, databaseID, property, title string) (int, error) {
	pages, err := n.queryAll(ctx, databaseID, titleEquals(property, title))
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// codeFilter builds the registry-code equality filter. The code property is a
// number in some containers, a rollup in others, and text in the oldest ones;
// the filter shape has to follow the live schema.
func codeFilter(schema *Schema, property, code string) (notionapi.PropertyFilter, error) {
	filter := notionapi.PropertyFilter{Property: property}
	switch schema.TypeOf(property) {
	case TypeNumber:
		num, err := strconv.ParseFloat(code, 64)
		if err != nil {
			return filter, fmt.Errorf("registry code %q is not numeric: %w", code, err)
		}
		filter.Number = &notionapi.NumberFilterCondition{Equals: &num}
	case TypeRollup:
		num, err := strconv.ParseFloat(code, 64)
		if err != nil {
			return filter, fmt.Errorf("registry code %q is not numeric: %w", code, err)
		}
		filter.Rollup = &notionapi.RollupFilterCondition{
			Number: &notionapi.NumberFilterCondition{Equals: &num},
		}
	default:
		// Title and plain-text properties both take the rich_text
		// condition; the API accepts it on titles and it is the only
		// text condition the client exposes.
		filter.RichText = &notionapi.TextFilterCondition{Equals: code}
	}
	return filter, nil
}

// titleEquals is the exact-match filter for a title property, expressed as a
// rich_text condition.
func titleEquals(property, title string) notionapi.PropertyFilter {
	return notionapi.PropertyFilter{
		Property: property,
		RichText: &notionapi.TextFilterCondition{Equals: title},
	}
}

func (n *Notion) CountByRelation(ctx context.Context, databaseID, property, pageID string) (int, error) {
	pages, err := n.queryAll(ctx, databaseID, notionapi.PropertyFilter{
		Property: property,
		Relation: &notionapi.RelationFilterCondition{Contains: pageID},
	})
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

func (n *Notion) MaxNumber(ctx context.Context, databaseID, property string) (int, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		Sorts: []notionapi.SortObject{
			{Property: property, Direction: notionapi.SortOrderDESC},
		},
		PageSize: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("query max %s in %s: %w", property, databaseID, err)
	}
	if len(resp.Results) == 0 {
		return 0, nil
	}
	if prop, ok := resp.Results[0].Properties[property].(*notionapi.NumberProperty); ok {
		return int(prop.Number), nil
	}
	return 0, nil
}

func (n *Notion) Create(ctx context.Context, databaseID string, props Properties) (*Page, error) {
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: toNotionProps(props),
	})
	if err != nil {
		return nil, fmt.Errorf("create in %s: %w", databaseID, err)
	}
	n.logger.Info("record created",
		zap.String("database_id", databaseID),
		zap.String("page_id", string(page.ID)))
	return fromNotionPage(page), nil
}

func (n *Notion) Update(ctx context.Context, pageID string, props Properties) (*Page, error) {
	page, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: toNotionProps(props),
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", pageID, err)
	}
	return fromNotionPage(page), nil
}

func (n *Notion) findFirst(ctx context.Context, databaseID string, filter notionapi.PropertyFilter) (*Page, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		Filter:   filter,
		PageSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", databaseID, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return fromNotionPage(&resp.Results[0]), nil
}

// queryAll pages through a filtered query until the cursor is exhausted.
func (n *Notion) queryAll(ctx context.Context, databaseID string, filter notionapi.PropertyFilter) ([]notionapi.Page, error) {
	var (
		pages  []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
			Filter:      filter,
			StartCursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", databaseID, err)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

func toNotionProps(props Properties) notionapi.Properties {
	out := make(notionapi.Properties, len(props))
	for name, v := range props {
		switch v.Kind {
		case KindTitle:
			out[name] = notionapi.TitleProperty{Title: richText(v.Text)}
		case KindText:
			out[name] = notionapi.RichTextProperty{RichText: richText(v.Text)}
		case KindNumber:
			out[name] = notionapi.NumberProperty{Number: v.Number}
		case KindSelect:
			out[name] = notionapi.SelectProperty{Select: notionapi.Option{Name: v.Text}}
		case KindEmail:
			out[name] = notionapi.EmailProperty{Email: v.Text}
		case KindPhone:
			out[name] = notionapi.PhoneNumberProperty{PhoneNumber: v.Text}
		case KindRelation:
			rels := make([]notionapi.Relation, 0, len(v.Relation))
			for _, id := range v.Relation {
				rels = append(rels, notionapi.Relation{ID: notionapi.PageID(id)})
			}
			out[name] = notionapi.RelationProperty{Relation: rels}
		case KindDate:
			t, err := time.Parse("2006-01-02", v.Text)
			if err != nil {
				// A malformed date is dropped rather than failing the
				// whole create.
				continue
			}
			d := notionapi.Date(t)
			out[name] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
		}
	}
	return out
}

func fromNotionPage(p *notionapi.Page) *Page {
	page := &Page{
		ID:    string(p.ID),
		URL:   p.URL,
		Props: Properties{},
	}
	for name, prop := range p.Properties {
		switch v := prop.(type) {
		case *notionapi.TitleProperty:
			page.Props[name] = Title(richTextPlain(v.Title))
		case *notionapi.RichTextProperty:
			page.Props[name] = Text(richTextPlain(v.RichText))
		case *notionapi.NumberProperty:
			page.Props[name] = Number(v.Number)
		case *notionapi.SelectProperty:
			page.Props[name] = Select(v.Select.Name)
		case *notionapi.EmailProperty:
			page.Props[name] = Email(v.Email)
		case *notionapi.PhoneNumberProperty:
			page.Props[name] = Phone(v.PhoneNumber)
		case *notionapi.RelationProperty:
			ids := make([]string, 0, len(v.Relation))
			for _, rel := range v.Relation {
				ids = append(ids, string(rel.ID))
			}
			page.Props[name] = Relation(ids...)
		}
	}
	return page
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}

func richTextPlain(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
