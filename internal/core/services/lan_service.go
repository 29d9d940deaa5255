package services

import (
	"context"
	"net"
	"strings"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
	"signalhub/pkg/utils"

	"go.uber.org/zap"
)

// Records older than this are ignored during scans; the reporting side
// refreshes on every reconnect.
const lanRecordTTL = 15 * time.Minute

type lanService struct {
	records ports.LanRepository
	metrics ports.MetricsSink
	logger  *zap.SugaredLogger
}

// NewLanService builds the LAN discovery helper. Matching is best-effort:
// two users are considered LAN peers when any of their reported addresses
// share a /24 subnet prefix. Malformed input means "no match", never an
// error.
func NewLanService(records ports.LanRepository, metrics ports.MetricsSink, logger *zap.SugaredLogger) ports.LanService {
	return &lanService{
		records: records,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *lanService) ReportAddresses(ctx context.Context, userID domain.UserID, displayName string, addresses []string) error {
	cleaned := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			cleaned = append(cleaned, addr)
		}
	}

	record := &domain.LanRecord{
		UserID:      userID,
		DisplayName: displayName,
		Addresses:   cleaned,
		LastUpdated: time.Now(),
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return err
	}

	s.logger.Debugw("lan addresses reported", "user_id", userID, "count", len(cleaned))
	return nil
}

func (s *lanService) ScanForPeers(ctx context.Context, userID domain.UserID, localAddresses []string) ([]domain.LanPeer, error) {
	// No explicit addresses: scan against the requester's own report.
	if len(localAddresses) == 0 {
		if record, err := s.records.GetByUser(ctx, userID); err == nil {
			localAddresses = record.Addresses
		}
	}

	prefixes := make(map[string]struct{}, len(localAddresses))
	for _, addr := range localAddresses {
		if prefix, ok := subnet24(addr); ok {
			prefixes[prefix] = struct{}{}
		}
	}

	// Always return a (possibly empty) list, never nil.
	peers := []domain.LanPeer{}
	if len(prefixes) == 0 {
		if s.metrics != nil {
			s.metrics.RecordLanScan(0)
		}
		return peers, nil
	}

	records, err := s.records.List(ctx)
	if err != nil {
		return peers, nil
	}

	for _, record := range records {
		if record.UserID == userID {
			continue
		}
		if utils.IsExpired(record.LastUpdated, lanRecordTTL) {
			continue
		}
		for _, addr := range record.Addresses {
			prefix, ok := subnet24(addr)
			if !ok {
				continue
			}
			if _, match := prefixes[prefix]; match {
				peers = append(peers, domain.LanPeer{
					ID:   record.UserID,
					Name: record.DisplayName,
					IP:   addr,
				})
				break
			}
		}
	}

	s.logger.Debugw("lan scan", "user_id", userID, "matches", len(peers))
	if s.metrics != nil {
		s.metrics.RecordLanScan(len(peers))
	}
	return peers, nil
}

func (s *lanService) Forget(ctx context.Context, userID domain.UserID) error {
	if err := s.records.Remove(ctx, userID); err != nil {
		// Nothing reported, nothing to forget.
		return nil
	}
	s.logger.Debugw("lan record forgotten", "user_id", userID)
	return nil
}

// subnet24 reduces an IPv4 address to its first three dotted-decimal
// octets. Addresses that carry a port are tolerated; anything that does
// not parse as IPv4 yields no prefix.
func subnet24(addr string) (string, bool) {
	a := strings.TrimSpace(addr)
	if a == "" {
		return "", false
	}

	if host, _, err := net.SplitHostPort(a); err == nil {
		a = host
	}

	ip := net.ParseIP(a)
	if ip == nil {
		return "", false
	}
	v4 := ip.To4()
	if v4 == nil {
		return "", false
	}

	octets := strings.Split(v4.String(), ".")
	return strings.Join(octets[:3], "."), true
}
