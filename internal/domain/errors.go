package domain

import "errors"

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrImageNotFound     = errors.New("image not found")
	ErrFinancingNotFound = errors.New("financing request not found")
	ErrPostNotFound      = errors.New("blog post not found")

	ErrInvalidListingData = errors.New("invalid listing data")
	ErrInvalidPostData    = errors.New("invalid blog post data")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrUnknownFeature     = errors.New("unknown feature")
	ErrUnknownField       = errors.New("unknown financing field")
)
