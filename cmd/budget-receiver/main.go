// Command budget-receiver handles SES receipt notifications: each invocation
// ingests one batch of inbound expense emails into the period ledger.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"budgetmail/internal/cli"
	"budgetmail/internal/inbound"
	blog "budgetmail/internal/log"
)

func main() {
	ctx := context.Background()
	cfg, logger, collab := cli.Bootstrap(ctx)
	defer collab.Close()

	lambda.Start(func(ctx context.Context, batch inbound.Batch) error {
		log := blog.WithInvocation(logger, cli.InvocationID(ctx))
		svc, err := collab.IngestService(cfg, log)
		if err != nil {
			return err
		}

		res, err := svc.Run(ctx, batch)
		if err != nil {
			log.ErrorContext(ctx, "Ingestion failed", blog.FieldError, err)
			return err
		}
		log.InfoContext(ctx, "Ingestion complete",
			"received", res.Received,
			"accepted", res.Accepted,
			blog.FieldEntries, len(res.Entries),
			blog.FieldTotal, res.Total.StringFixed(2))
		return nil
	})
}
