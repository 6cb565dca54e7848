package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub notification topic is required")
	errClosed            = errors.New("pubsub client not initialized")
)

// Client publishes notification events to a single topic that must already
// exist.
type Client struct {
	conn      *pubsub.Client
	topic     string
	publisher *pubsub.Publisher
	timeout   time.Duration
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic, err := topicPath(project, cfg.NotificationTopic)
	if err != nil {
		return nil, err
	}

	conn, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{conn: conn, topic: topic, timeout: cfg.PublishTimeout}
	if c.timeout <= 0 {
		c.timeout = defaultPublishTimeout
	}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.publisher = conn.Publisher(topic)
	// Notifications are low volume; flush quickly instead of batching.
	c.publisher.PublishSettings.DelayThreshold = 50 * time.Millisecond
	c.publisher.PublishSettings.CountThreshold = 10

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub publisher ready")
	}
	return c, nil
}

// clientOptions prefers inline credentials, then a key file, then ambient
// application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Publish blocks until the server acknowledges data and returns its message id.
func (c *Client) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	if c == nil || c.publisher == nil {
		return "", errClosed
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return id, nil
}

// Ping looks the topic up through the admin API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errClosed
	}
	_, err := c.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %s does not exist", c.topic)
	default:
		return fmt.Errorf("get topic %s: %w", c.topic, err)
	}
}

// Close flushes buffered messages before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.conn.Close()
}

// topicPath accepts a bare topic id or a full projects/<p>/topics/<t> name.
func topicPath(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errNoTopic
	}
	if !strings.HasPrefix(topic, "projects/") {
		if strings.Contains(topic, "/") {
			return "", fmt.Errorf("invalid topic id %q", topic)
		}
		return "projects/" + project + "/topics/" + topic, nil
	}
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
		return "", fmt.Errorf("invalid topic name %q", topic)
	}
	return topic, nil
}
