// Package workitem 将跟踪表整体读入为按物理行排序、以点位编号为键的快照。
package workitem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"fieldtrack/internal/metrics"
	"fieldtrack/internal/model"
	"fieldtrack/internal/tabular"
)

// DefaultTTL 快照缓存时间
const DefaultTTL = 5 * time.Minute

// noiseTokens 首个非空单元格等于这些值（忽略大小写与首尾空白）的行不是点位
var noiseTokens = []string{"ITEM", "HR TRACK"}

// Snapshot 一次整表读取的结果；SourceRow 仅在本快照内有效
type Snapshot struct {
	Ref      model.SheetRef
	Items    []*model.WorkItem
	LoadedAt time.Time

	index map[string]int
}

// Len 点位数量
func (s *Snapshot) Len() int {
	return len(s.Items)
}

// IDs 按物理行顺序的编号
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.ID
	}
	return ids
}

// Get 按编号取点位
func (s *Snapshot) Get(id string) (*model.WorkItem, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.Items[i], true
}

// Index 编号在顺序中的位置，不存在返回 -1
func (s *Snapshot) Index(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Repository 跟踪表仓储（带 TTL 缓存）
type Repository struct {
	store tabular.Store
	cache *cache.Cache
	now   func() time.Time
}

// NewRepository 创建仓储；ttl<=0 时使用 DefaultTTL
func NewRepository(store tabular.Store, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{
		store: store,
		cache: cache.New(ttl, 2*ttl),
		now:   time.Now,
	}
}

// LoadAll 读取整表（命中缓存时不访问存储）
func (r *Repository) LoadAll(ctx context.Context, ref model.SheetRef) (*Snapshot, error) {
	if v, found := r.cache.Get(ref.Key()); found {
		if snap, ok := v.(*Snapshot); ok {
			return snap, nil
		}
	}

	sheet, err := tabular.OpenSheet(ctx, r.store, ref)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref.Key(), err)
	}
	grid, err := sheet.GetAllValues()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref.Key(), err)
	}

	snap := BuildSnapshot(ref, grid)
	snap.LoadedAt = r.now()
	r.cache.SetDefault(ref.Key(), snap)
	metrics.SetCachedSnapshots(r.cache.ItemCount())
	zap.S().Debugf("loaded %d work items from %s", snap.Len(), ref.Key())
	return snap, nil
}

// Invalidate 写入后必须调用
func (r *Repository) Invalidate(ref model.SheetRef) {
	r.cache.Delete(ref.Key())
	metrics.SetCachedSnapshots(r.cache.ItemCount())
}

// InvalidateAll 清空全部快照
func (r *Repository) InvalidateAll() {
	r.cache.Flush()
	metrics.SetCachedSnapshots(0)
}

// Cached 当前缓存的快照数
func (r *Repository) Cached() int {
	return r.cache.ItemCount()
}

// BuildSnapshot 线性扫描网格：跳过空行和噪声行，首个非空单元格作为编号
func BuildSnapshot(ref model.SheetRef, grid [][]string) *Snapshot {
	snap := &Snapshot{
		Ref:   ref,
		Items: make([]*model.WorkItem, 0, len(grid)),
		index: make(map[string]int),
	}

	for i, row := range grid {
		id, col := firstNonEmpty(row)
		if id == "" || isNoise(id) {
			continue
		}
		if _, dup := snap.index[id]; dup {
			zap.S().Warnf("duplicate work item %q at row %d in %s, keeping first", id, i+1, ref.Key())
			continue
		}

		fields := make([]string, len(row))
		copy(fields, row)
		snap.index[id] = len(snap.Items)
		snap.Items = append(snap.Items, &model.WorkItem{
			ID:        id,
			SourceRow: i + 1,
			RawFields: fields,
			IDCol:     col,
		})
	}
	return snap
}

func firstNonEmpty(row []string) (string, int) {
	for i, cell := range row {
		if v := strings.TrimSpace(cell); v != "" {
			return v, i + 1
		}
	}
	return "", 0
}

func isNoise(v string) bool {
	for _, tok := range noiseTokens {
		if strings.EqualFold(v, tok) {
			return true
		}
	}
	return false
}
