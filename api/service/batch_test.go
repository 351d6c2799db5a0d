package service

import (
	"context"
	"errors"
	"testing"

	"imageForge/api/dto"
	"imageForge/api/models"
)

func TestBatchService_CreateBatch_FansOutAndDispatchesFirst(t *testing.T) {
	repo := newFakeRepo()
	producer := &fakeProducer{}
	svc := NewBatchService(repo, newFakeMirror(), producer, "generation_tasks")

	req := &dto.CreateBatchRequest{
		OwnerID: "owner-1",
		Variations: []dto.BatchVariation{
			{Prompt: "variation one"},
			{Prompt: "variation two"},
			{Prompt: "variation three"},
		},
		ReferenceURLs: []string{"https://refs.example.com/a.png"},
	}

	resp, err := svc.CreateBatch(context.Background(), "trace-1", req)
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	if resp.Total != 3 {
		t.Errorf("Expected total 3, got %d", resp.Total)
	}
	if len(repo.created) != 1 || len(repo.created[0]) != 3 {
		t.Fatalf("Expected 3 tasks inserted in one call, got %+v", repo.created)
	}
	for i, task := range repo.created[0] {
		if task.BatchIndex != i {
			t.Errorf("Expected batch index %d, got %d", i, task.BatchIndex)
		}
		if task.Status != models.StatusQueued {
			t.Errorf("Expected queued status, got %s", task.Status)
		}
		if task.BatchID != resp.BatchID {
			t.Errorf("Task %d has batch id %s, want %s", i, task.BatchID, resp.BatchID)
		}
		if task.OwnerID != "owner-1" {
			t.Errorf("Task %d missing owner id", i)
		}
	}

	if len(producer.dispatches) != 1 {
		t.Fatalf("Expected exactly one dispatch, got %d", len(producer.dispatches))
	}
	if producer.dispatches[0].TaskID != repo.created[0][0].ID {
		t.Errorf("Expected the index-0 task dispatched, got %s", producer.dispatches[0].TaskID)
	}
}

func TestBatchService_CreateBatch_EmptyBatch(t *testing.T) {
	svc := NewBatchService(newFakeRepo(), newFakeMirror(), &fakeProducer{}, "generation_tasks")

	_, err := svc.CreateBatch(context.Background(), "trace-1", &dto.CreateBatchRequest{OwnerID: "owner-1"})
	if !errors.Is(err, dto.ErrEmptyBatch) {
		t.Fatalf("Expected ErrEmptyBatch, got %v", err)
	}
}

func TestBatchService_CreateBatch_BlankPrompt(t *testing.T) {
	svc := NewBatchService(newFakeRepo(), newFakeMirror(), &fakeProducer{}, "generation_tasks")

	req := &dto.CreateBatchRequest{
		OwnerID:    "owner-1",
		Variations: []dto.BatchVariation{{Prompt: "  "}},
	}
	_, err := svc.CreateBatch(context.Background(), "trace-1", req)
	if !errors.Is(err, dto.ErrEmptyPrompt) {
		t.Fatalf("Expected ErrEmptyPrompt, got %v", err)
	}
}

func TestBatchService_GetBatchStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.countsByBatch["batch-1"] = models.BatchCounts{Total: 5, Completed: 2, Failed: 1}
	svc := NewBatchService(repo, newFakeMirror(), &fakeProducer{}, "generation_tasks")

	resp, err := svc.GetBatchStatus(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("GetBatchStatus failed: %v", err)
	}

	if resp.Total != 5 || resp.Completed != 2 || resp.Failed != 1 || resp.Pending != 2 {
		t.Errorf("Unexpected counts: %+v", resp)
	}
	if resp.Done {
		t.Error("Batch with pending tasks must not be done")
	}

	// No intervening writes: a second call must agree with the first.
	again, err := svc.GetBatchStatus(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("GetBatchStatus failed: %v", err)
	}
	if *again != *resp {
		t.Errorf("Aggregation not idempotent: %+v vs %+v", resp, again)
	}
}

func TestBatchService_GetBatchStatus_AllTerminalIsDone(t *testing.T) {
	repo := newFakeRepo()
	repo.countsByBatch["batch-1"] = models.BatchCounts{Total: 3, Completed: 2, Failed: 1}
	svc := NewBatchService(repo, newFakeMirror(), &fakeProducer{}, "generation_tasks")

	resp, err := svc.GetBatchStatus(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("GetBatchStatus failed: %v", err)
	}

	if !resp.Done || resp.Pending != 0 {
		t.Errorf("Expected done batch, got %+v", resp)
	}
}

func TestBatchService_GetBatchStatus_UnknownBatch(t *testing.T) {
	svc := NewBatchService(newFakeRepo(), newFakeMirror(), &fakeProducer{}, "generation_tasks")

	_, err := svc.GetBatchStatus(context.Background(), "nope")
	if !errors.Is(err, dto.ErrBatchNotFound) {
		t.Fatalf("Expected ErrBatchNotFound, got %v", err)
	}
}

func TestBatchService_GetTask_NotFound(t *testing.T) {
	svc := NewBatchService(newFakeRepo(), newFakeMirror(), &fakeProducer{}, "generation_tasks")

	_, err := svc.GetTask(context.Background(), "missing")
	if !errors.Is(err, dto.ErrTaskNotFound) {
		t.Fatalf("Expected ErrTaskNotFound, got %v", err)
	}
}
