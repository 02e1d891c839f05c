package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/graph"
)

// FolderRepository persists folders as (:Folder)-[:CONTAINS]->(:Token) subgraphs.
type FolderRepository struct {
	client graph.Client
}

// New instantiates a FolderRepository backed by the supplied graph client.
func New(client graph.Client) *FolderRepository {
	return &FolderRepository{client: client}
}

// Create stores a new folder with its items.
func (r *FolderRepository) Create(ctx context.Context, f domain.Folder) error {
	if f.ID == "" {
		return errors.NotValidf("empty folder id")
	}
	query := fmt.Sprintf(saveFolderCypherTemplate, "CREATE (f:Folder {folderId: $folderId})")
	if _, err := r.client.ExecuteWrite(ctx, query, folderParams(f)); err != nil {
		return errors.Annotatef(err, "create folder %s", f.ID)
	}
	return nil
}

// Update replaces the stored properties and item set of an existing folder.
func (r *FolderRepository) Update(ctx context.Context, f domain.Folder) error {
	query := fmt.Sprintf(saveFolderCypherTemplate, "MATCH (f:Folder {folderId: $folderId})")
	res, err := r.client.ExecuteWrite(ctx, query, folderParams(f))
	if err != nil {
		return errors.Annotatef(err, "update folder %s", f.ID)
	}
	if len(res.Records) == 0 {
		return errors.NotFoundf("folder %s", f.ID)
	}
	return nil
}

// Get loads one folder.
func (r *FolderRepository) Get(ctx context.Context, id string) (domain.Folder, error) {
	query := fmt.Sprintf(folderProjectionTemplate, "MATCH (f:Folder {folderId: $folderId})")
	res, err := r.client.ExecuteRead(ctx, query, map[string]any{"folderId": id})
	if err != nil {
		return domain.Folder{}, errors.Annotatef(err, "get folder %s", id)
	}
	if len(res.Records) == 0 {
		return domain.Folder{}, errors.NotFoundf("folder %s", id)
	}
	return folderFromRecord(res.Records[0]), nil
}

// ListByOwner returns the owner's folders, oldest first.
func (r *FolderRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Folder, error) {
	query := fmt.Sprintf(folderProjectionTemplate, "MATCH (f:Folder {owner: $owner})")
	return r.list(ctx, query, map[string]any{"owner": owner})
}

// ListPublic returns every public folder, oldest first.
func (r *FolderRepository) ListPublic(ctx context.Context) ([]domain.Folder, error) {
	query := fmt.Sprintf(folderProjectionTemplate, "MATCH (f:Folder) WHERE f.isPublic = true")
	return r.list(ctx, query, nil)
}

// Delete removes a folder and its item edges.
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.client.ExecuteWrite(ctx, deleteFolderCypher, map[string]any{"folderId": id})
	if err != nil {
		return errors.Annotatef(err, "delete folder %s", id)
	}
	if len(res.Records) == 0 {
		return errors.NotFoundf("folder %s", id)
	}
	return nil
}

func (r *FolderRepository) list(ctx context.Context, query string, params map[string]any) ([]domain.Folder, error) {
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, errors.Annotate(err, "list folders")
	}
	folders := make([]domain.Folder, 0, len(res.Records))
	for _, record := range res.Records {
		folders = append(folders, folderFromRecord(record))
	}
	return folders, nil
}

func folderParams(f domain.Folder) map[string]any {
	items := make([]map[string]any, 0, len(f.Items))
	for i, item := range f.Items {
		items = append(items, map[string]any{
			"key":      item.Key(),
			"chain":    string(item.Chain),
			"contract": string(item.Contract),
			"tokenId":  item.TokenID,
			"addedAt":  formatTime(item.AddedAt),
			"position": i,
		})
	}
	return map[string]any{
		"folderId": f.ID,
		"props": map[string]any{
			"owner":       f.Owner,
			"name":        f.Name,
			"description": f.Description,
			"isPublic":    f.IsPublic,
			"createdAt":   formatTime(f.CreatedAt),
			"updatedAt":   formatTime(f.UpdatedAt),
		},
		"items": items,
	}
}

func folderFromRecord(record graph.Record) domain.Folder {
	f := domain.Folder{
		ID:          toString(record["folderId"]),
		Owner:       toString(record["owner"]),
		Name:        toString(record["name"]),
		Description: toString(record["description"]),
		Items:       []domain.FolderItem{},
	}
	if b, ok := record["isPublic"].(bool); ok {
		f.IsPublic = b
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		f.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		f.UpdatedAt = *updated
	}
	raw, _ := record["items"].([]any)
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := domain.FolderItem{
			Chain:    domain.Chain(toString(m["chain"])),
			Contract: domain.Address(toString(m["contract"])),
			TokenID:  toString(m["tokenId"]),
		}
		if added := toTimePtr(m["addedAt"]); added != nil {
			item.AddedAt = *added
		}
		f.Items = append(f.Items, item)
	}
	return f
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
	}
	return nil
}

// The %s placeholder selects CREATE or MATCH of the folder node. Items are
// rewritten wholesale on every save.
const saveFolderCypherTemplate = `
%s
SET f += $props
WITH f
OPTIONAL MATCH (f)-[old:CONTAINS]->(:Token)
DELETE old
WITH DISTINCT f
FOREACH (item IN $items |
	MERGE (t:Token {tokenKey: item.key})
	ON CREATE SET t.chain = item.chain, t.contract = item.contract, t.tokenId = item.tokenId
	MERGE (f)-[c:CONTAINS]->(t)
	SET c.addedAt = item.addedAt,
	    c.position = item.position
)
RETURN f.folderId AS folderId
`

const folderProjectionTemplate = `
%s
OPTIONAL MATCH (f)-[c:CONTAINS]->(t:Token)
WITH f, c, t
ORDER BY c.position
WITH f, collect(CASE WHEN t IS NULL THEN NULL ELSE {
	chain: t.chain,
	contract: t.contract,
	tokenId: t.tokenId,
	addedAt: c.addedAt
} END) AS items
RETURN f.folderId AS folderId,
       f.owner AS owner,
       f.name AS name,
       f.description AS description,
       f.isPublic AS isPublic,
       f.createdAt AS createdAt,
       f.updatedAt AS updatedAt,
       items
ORDER BY createdAt, folderId
`

const deleteFolderCypher = `
MATCH (f:Folder {folderId: $folderId})
WITH f, f.folderId AS folderId
DETACH DELETE f
RETURN folderId
`
