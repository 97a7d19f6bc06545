package audit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// CheckKafka verifies that the first reachable broker answers and that topic
// is visible to this client. The returned error carries an operator hint.
func CheckKafka(ctx context.Context, brokers, topic string, timeout time.Duration) (partitions int, err error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &kafka.Dialer{Timeout: timeout}

	var lastErr error
	for _, addr := range strings.Split(brokers, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		dctx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := dialer.DialContext(dctx, "tcp", addr)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("dial %s: %w%s", addr, err, hint(err))
			continue
		}
		parts, err := conn.ReadPartitions(topic)
		_ = conn.Close()
		if err != nil {
			return 0, fmt.Errorf("describe topic %s: %w%s", topic, err, hint(err))
		}
		return len(parts), nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return 0, lastErr
}

func hint(err error) string {
	var ke kafka.Error
	if errors.As(err, &ke) {
		switch ke {
		case kafka.TopicAuthorizationFailed:
			return " (grant Write/Describe on the audit topic)"
		case kafka.UnknownTopicOrPartition:
			return " (create the audit topic or enable auto creation)"
		case kafka.LeaderNotAvailable, kafka.NotLeaderForPartition:
			return " (leader not available, check broker health)"
		}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return " (timed out, check network path and advertised.listeners)"
	}
	return ""
}
