package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

type rawCategory struct {
	model.Category
	OID string `json:"_id"`
}

type rawMenuItem struct {
	model.MenuItem
	OID      string          `json:"_id"`
	Category json.RawMessage `json:"category"`
}

// Menu возвращает меню ресторана. Админский путь требует сессии; без неё
// используется публичный путь меню для посетителей.
func (a *API) Menu(ctx context.Context, sess *apiclient.Session) (*model.Menu, error) {
	path := "/menu"
	if sess != nil {
		path = "/admin/menu"
	}

	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: path})
	if err != nil {
		return nil, fmt.Errorf("get menu: %w", err)
	}

	env := apiclient.Unwrap(raw)
	menu := &model.Menu{Categories: []model.Category{}, Items: []model.MenuItem{}}

	switch env.Shape {
	case apiclient.ShapeArray:
		items, err := decodeMenuItems(env.Items)
		if err != nil {
			return nil, err
		}
		menu.Items = items
	case apiclient.ShapeObject:
		var p struct {
			Categories []rawCategory    `json:"categories"`
			Items      []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(env.Object, &p); err != nil {
			return nil, fmt.Errorf("decode menu: %w", err)
		}
		for _, c := range p.Categories {
			if c.ID == "" {
				c.ID = c.OID
			}
			menu.Categories = append(menu.Categories, c.Category)
		}
		items, err := decodeMenuItems(p.Items)
		if err != nil {
			return nil, err
		}
		menu.Items = items
	}

	return menu, nil
}

func decodeMenuItems(list []json.RawMessage) ([]model.MenuItem, error) {
	items := make([]model.MenuItem, 0, len(list))
	for i, raw := range list {
		var it rawMenuItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("decode menu item %d: %w", i, err)
		}
		if it.ID == "" {
			it.ID = it.OID
		}
		if it.CategoryID == "" && len(it.Category) > 0 {
			var ref struct {
				ID  string `json:"id"`
				OID string `json:"_id"`
			}
			var s string
			if err := json.Unmarshal(it.Category, &s); err == nil {
				it.CategoryID = s
			} else if err := json.Unmarshal(it.Category, &ref); err == nil {
				it.CategoryID = ref.OID
				if it.CategoryID == "" {
					it.CategoryID = ref.ID
				}
			}
		}
		items = append(items, it.MenuItem)
	}
	return items, nil
}

// SaveMenuItem создаёт позицию меню, если у неё нет идентификатора, иначе обновляет её.
func (a *API) SaveMenuItem(ctx context.Context, sess *apiclient.Session, item model.MenuItem) (*model.MenuItem, error) {
	req := apiclient.Request{Method: http.MethodPost, Path: "/admin/menu/items", Body: item, Idempotency: true}
	if item.ID != "" {
		req = apiclient.Request{Method: http.MethodPatch, Path: "/admin/menu/items/" + url.PathEscape(item.ID), Body: item}
	}

	raw, err := a.c.Do(ctx, sess, req)
	if err != nil {
		return nil, fmt.Errorf("save menu item: %w", err)
	}
	obj := objectOf(raw)
	if obj == nil {
		return &item, nil
	}
	items, err := decodeMenuItems([]json.RawMessage{obj})
	if err != nil {
		return nil, err
	}
	saved := items[0]
	if saved.ID == "" {
		saved.ID = item.ID
	}
	return &saved, nil
}

// DeleteMenuItem удаляет позицию меню.
func (a *API) DeleteMenuItem(ctx context.Context, sess *apiclient.Session, id string) error {
	_, err := a.c.Do(ctx, sess, apiclient.Request{Method: http.MethodDelete, Path: "/admin/menu/items/" + url.PathEscape(id)})
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return nil
}

// SaveCategory создаёт или обновляет раздел меню.
func (a *API) SaveCategory(ctx context.Context, sess *apiclient.Session, c model.Category) (*model.Category, error) {
	req := apiclient.Request{Method: http.MethodPost, Path: "/admin/menu/categories", Body: c, Idempotency: true}
	if c.ID != "" {
		req = apiclient.Request{Method: http.MethodPatch, Path: "/admin/menu/categories/" + url.PathEscape(c.ID), Body: c}
	}

	raw, err := a.c.Do(ctx, sess, req)
	if err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	obj := objectOf(raw)
	if obj == nil {
		return &c, nil
	}
	var rc rawCategory
	if err := json.Unmarshal(obj, &rc); err != nil {
		return nil, fmt.Errorf("decode category: %w", err)
	}
	if rc.ID == "" {
		rc.ID = rc.OID
	}
	if rc.ID == "" {
		rc.ID = c.ID
	}
	return &rc.Category, nil
}

// DeleteCategory удаляет раздел меню.
func (a *API) DeleteCategory(ctx context.Context, sess *apiclient.Session, id string) error {
	_, err := a.c.Do(ctx, sess, apiclient.Request{Method: http.MethodDelete, Path: "/admin/menu/categories/" + url.PathEscape(id)})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func objectOf(raw json.RawMessage) json.RawMessage {
	env := apiclient.Unwrap(raw)
	switch env.Shape {
	case apiclient.ShapeObject:
		return env.Object
	case apiclient.ShapeArray:
		if len(env.Items) > 0 {
			return env.Items[0]
		}
	}
	return nil
}
