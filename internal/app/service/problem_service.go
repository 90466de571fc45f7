package service

import (
	"context"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/platform/storage"
)

type ProblemService struct {
	store *repository.Store
	blobs storage.BlobStore // nil when image bytes live in the relational store
}

func NewProblemService(store *repository.Store, blobs storage.BlobStore) *ProblemService {
	return &ProblemService{store: store, blobs: blobs}
}

// Resolve finds the problem a reference points at. With publicOnly, hidden problems are not found.
func (s *ProblemService) Resolve(ctx context.Context, ref model.ProblemRef, publicOnly bool) (*model.Problem, error) {
	var problem *model.Problem
	switch r := ref.(type) {
	case model.RefByID:
		p, err := s.store.Problems.FindByID(ctx, nil, int64(r))
		if err != nil {
			return nil, common.StoreError("find problem", err)
		}
		if publicOnly && !p.Public {
			return nil, common.ErrProblemNotFound
		}
		problem = p
	case model.RefByDate:
		problems, err := s.store.Problems.FindByDate(ctx, time.Time(r), publicOnly)
		if err != nil {
			return nil, common.StoreError("find problems by date", err)
		}
		switch len(problems) {
		case 0:
			return nil, common.ErrProblemNotFound
		case 1:
			problem = &problems[0]
		default:
			return nil, common.ErrAmbiguousProblemRef
		}
	default:
		return nil, common.ErrInvalidProblemRef
	}

	imageIDs, err := s.store.Problems.ListImageIDs(ctx, problem.ID)
	if err != nil {
		return nil, common.StoreError("list problem images", err)
	}
	problem.ImageIDs = imageIDs
	return problem, nil
}

// GetImage returns an image of a problem. Only admins may see images of hidden problems.
func (s *ProblemService) GetImage(ctx context.Context, problemID, imageID int64, isAdmin bool) (*model.ProblemImage, error) {
	problem, err := s.store.Problems.FindByID(ctx, nil, problemID)
	if err != nil {
		return nil, common.StoreError("find problem", err)
	}
	if !problem.Public && !isAdmin {
		return nil, common.ErrProblemNotFound
	}
	img, err := s.store.Problems.FindImage(ctx, problemID, imageID)
	if err != nil {
		return nil, common.StoreError("find image", err)
	}
	if img.ObjectKey != "" {
		if s.blobs == nil {
			return nil, common.Errorf("image %d is in an object store that is not configured: %w", img.ID, common.ErrStoreFailure)
		}
		data, err := s.blobs.Get(ctx, img.ObjectKey)
		if err != nil {
			return nil, common.StoreError("fetch image blob", err)
		}
		img.Data = data
	}
	return img, nil
}
