package blocksources

// FixedSizeBlockResolver assumes every block at the source is exactly
// BlockSize bytes, except possibly the last one if FileSize is known and
// isn't an exact multiple of BlockSize.
type FixedSizeBlockResolver struct {
	BlockSize             uint64
	MaxDesiredRequestSize uint64
	// FileSize, if set (> 0), clamps the end offset of the last block so a
	// partial trailing block isn't over-read.
	FileSize int64
}

func (r *FixedSizeBlockResolver) GetBlockStartOffset(blockID uint) int64 {
	return int64(uint64(blockID) * r.BlockSize)
}

func (r *FixedSizeBlockResolver) GetBlockEndOffset(blockID uint) int64 {
	end := int64(uint64(blockID+1) * r.BlockSize)
	if r.FileSize > 0 && end > r.FileSize {
		end = r.FileSize
	}
	return end
}

// Split blocks into chunks of the desired size, or less. This implementation assumes a fixed block size at the source.
func (r *FixedSizeBlockResolver) SplitBlockRangeToDesiredSize(startBlockID, endBlockID uint) []QueuedRequest {

	if r.MaxDesiredRequestSize == 0 {
		return []QueuedRequest{
			{
				startBlockID: startBlockID,
				endBlockID:   endBlockID,
			},
		}
	}

	maxSize := r.MaxDesiredRequestSize
	if r.MaxDesiredRequestSize < r.BlockSize {
		maxSize = r.BlockSize
	}

	// how many blocks is the desired size?
	blockCountPerRequest := uint(maxSize / r.BlockSize)

	requests := make([]QueuedRequest, 0, (endBlockID-startBlockID)/blockCountPerRequest+1)
	currentBlockID := startBlockID

	for {
		maxEndBlock := currentBlockID + blockCountPerRequest

		if maxEndBlock > endBlockID {
			requests = append(
				requests,
				QueuedRequest{
					startBlockID: currentBlockID,
					endBlockID:   endBlockID,
				},
			)

			return requests
		} else {
			requests = append(
				requests,
				QueuedRequest{
					startBlockID: currentBlockID,
					endBlockID:   maxEndBlock - 1,
				},
			)

			currentBlockID = maxEndBlock
		}
	}
}
