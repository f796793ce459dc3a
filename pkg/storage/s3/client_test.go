package s3

import (
	"context"
	"testing"
	"time"
)

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := &Client{publicURL: "https://cdn.example.com"}

	if got := client.PublicURL("media/products/rose-240.webp"); got != "https://cdn.example.com/media/products/rose-240.webp" {
		t.Fatalf("url = %s", got)
	}
	if got := client.PublicURL("/uploads/a.png"); got != "https://cdn.example.com/uploads/a.png" {
		t.Fatalf("leading slash not trimmed: %s", got)
	}
}

func TestOpContextBoundsEveryRoundTrip(t *testing.T) {
	t.Parallel()

	client := &Client{opTimeout: 50 * time.Millisecond}

	ctx, cancel := client.opContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("operation context has no deadline")
	}
	if remaining := time.Until(deadline); remaining > 50*time.Millisecond {
		t.Fatalf("deadline %s exceeds the configured operation timeout", remaining)
	}
}
