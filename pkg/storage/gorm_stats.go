package storage

import (
	"context"
	"sort"
	"time"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// PartitionStats summarises the messages of one queue partition.
type PartitionStats struct {
	Partition string `json:"partition"`
	Ready     int64  `json:"ready"`
	Reserved  int64  `json:"reserved"`
	Scheduled int64  `json:"scheduled"`
}

// Stats returns per-partition message counts grouped by delivery state.
//
// A message is ready once its visibility deadline has passed, reserved while
// a consumer holds it hidden, and scheduled while it waits for a future
// delivery time without a reservation.
func (s *GormStore) Stats(ctx context.Context) ([]PartitionStats, error) {
	type row struct {
		Partition   string
		HiddenUntil time.Time
		ReservedBy  string
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&core.Message{}).
		Select("partition, hidden_until, reserved_by").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	statsMap := make(map[string]*PartitionStats)
	for _, r := range rows {
		ps, ok := statsMap[r.Partition]
		if !ok {
			ps = &PartitionStats{Partition: r.Partition}
			statsMap[r.Partition] = ps
		}
		switch {
		case !r.HiddenUntil.After(now):
			ps.Ready++
		case r.ReservedBy != "":
			ps.Reserved++
		default:
			ps.Scheduled++
		}
	}

	result := make([]PartitionStats, 0, len(statsMap))
	for _, ps := range statsMap {
		result = append(result, *ps)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Partition < result[j].Partition
	})
	return result, nil
}

// Messages returns the messages of a queue partition in delivery order.
func (s *GormStore) Messages(ctx context.Context, partition string) ([]core.Message, error) {
	if err := core.ValidatePartition(partition); err != nil {
		return nil, err
	}

	var messages []core.Message
	err := s.db.WithContext(ctx).
		Where("partition = ?", partition).
		Order("hidden_until ASC").
		Find(&messages).Error
	return messages, err
}

// Partitions returns the distinct key-value partition names in use.
func (s *GormStore) Partitions(ctx context.Context) ([]string, error) {
	var partitions []string
	err := s.db.WithContext(ctx).
		Model(&core.Entry{}).
		Distinct().
		Order("partition ASC").
		Pluck("partition", &partitions).Error
	return partitions, err
}
