// Package feed 保存已接收的CVE记录并向订阅者通知新批次。
//
// 记录只追加不修改，同一编号以首次到达的为准。分析函数总是通过
// Snapshot拿到当前集合的副本，因此不会观察到正在变化的数据。
package feed

import (
	"sync"

	"CVELens/internal/model"
)

// Batch 一次追加带来的新记录
type Batch struct {
	Seq     uint64         `json:"seq"`
	Records []model.Record `json:"records"`
	Total   int            `json:"total"`
}

type Feed struct {
	mu      sync.RWMutex
	records []model.Record
	seen    map[string]struct{}
	seq     uint64

	subs   map[int]chan Batch
	nextID int
}

func New() *Feed {
	return &Feed{
		seen: make(map[string]struct{}),
		subs: make(map[int]chan Batch),
	}
}

// Append 追加尚未见过的记录，返回实际新增的批次。
// 没有新记录时不通知订阅者，返回的Batch.Records为空。
func (f *Feed) Append(records []model.Record) Batch {
	f.mu.Lock()
	defer f.mu.Unlock()

	fresh := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, ok := f.seen[r.ID]; ok {
			continue
		}
		f.seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return Batch{Seq: f.seq, Total: len(f.records)}
	}

	f.records = append(f.records, fresh...)
	f.seq++
	batch := Batch{Seq: f.seq, Records: fresh, Total: len(f.records)}

	// 订阅者跟不上时丢弃通知，它仍可通过Snapshot追上
	for _, ch := range f.subs {
		select {
		case ch <- batch:
		default:
		}
	}
	return batch
}

// Snapshot 返回当前全部记录的副本
func (f *Feed) Snapshot() []model.Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.Record, len(f.records))
	copy(out, f.records)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Seq 最近一次追加的序号，0表示尚无数据
func (f *Feed) Seq() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seq
}

// Subscribe 注册一个带缓冲的通知通道，cancel后通道被关闭
func (f *Feed) Subscribe(buffer int) (<-chan Batch, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Batch, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
