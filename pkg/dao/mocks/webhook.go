package mocks

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/api"
	"github.com/infractl/infractl/pkg/dao"
)

var _ dao.WebhookDao = &webhookDaoMock{}

type webhookDaoMock struct {
	mu       sync.Mutex
	nextID   int64
	webhooks api.AdmissionWebhookList
}

func NewWebhookDao() *webhookDaoMock {
	return &webhookDaoMock{}
}

func (d *webhookDaoMock) Get(ctx context.Context, id int64) (*api.AdmissionWebhook, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.webhooks {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *webhookDaoMock) Create(ctx context.Context, webhook *api.AdmissionWebhook) (*api.AdmissionWebhook, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.webhooks {
		if w.Name == webhook.Name {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	d.nextID++
	webhook.ID = d.nextID
	if err := webhook.BeforeCreate(nil); err != nil {
		return nil, err
	}
	d.webhooks = append(d.webhooks, webhook)
	return webhook, nil
}

func (d *webhookDaoMock) Replace(ctx context.Context, webhook *api.AdmissionWebhook) (*api.AdmissionWebhook, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.webhooks {
		if w.ID == webhook.ID {
			d.webhooks[i] = webhook
			return webhook, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *webhookDaoMock) Delete(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.webhooks {
		if w.ID == id {
			d.webhooks = append(d.webhooks[:i], d.webhooks[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (d *webhookDaoMock) All(ctx context.Context) (api.AdmissionWebhookList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append(api.AdmissionWebhookList{}, d.webhooks...), nil
}

func (d *webhookDaoMock) ListForAdmission(ctx context.Context, webhookType, typeName, typeVersion string) (api.AdmissionWebhookList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var matched api.AdmissionWebhookList
	for _, w := range d.webhooks {
		if w.WebhookType != webhookType {
			continue
		}
		if w.ResourceTypeName != nil {
			if *w.ResourceTypeName != typeName {
				continue
			}
			if w.ResourceTypeVersion != nil && *w.ResourceTypeVersion != typeVersion {
				continue
			}
		}
		matched = append(matched, w)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Ordering != matched[j].Ordering {
			return matched[i].Ordering < matched[j].Ordering
		}
		return matched[i].ID < matched[j].ID
	})

	return matched, nil
}
