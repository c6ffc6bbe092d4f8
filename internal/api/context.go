/*
 *     Copyright (c) 2023. Raft LLC
 *
 *     This program is free software: you can redistribute it and/or modify
 *     it under the terms of the GNU General Public License as published by
 *     the Free Software Foundation, either version 3 of the License, or
 *     (at your option) any later version.
 *
 *     This program is distributed in the hope that it will be useful,
 *     but WITHOUT ANY WARRANTY; without even the implied warranty of
 *     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *     GNU General Public License for more details.
 *
 *     You should have received a copy of the GNU General Public License
 *     along with this program.  If not, see <https://www.gnu.org/licenses/>.
 *
 */

package api

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	PeerMetadataKey     = "peer"
	InstanceMetadataKey = "instance"
)

// OutgoingContext attaches the calling instance and its addressee to ctx.
func OutgoingContext(ctx context.Context, md Metadata) context.Context {
	return metadata.AppendToOutgoingContext(ctx, PeerMetadataKey, md.Peer, InstanceMetadataKey, md.Instance)
}

func GetMetadataFromContext(ctx context.Context) (md Metadata, ok bool) {
	var rmd metadata.MD
	if rmd, ok = metadata.FromIncomingContext(ctx); !ok {
		return
	}
	if p := rmd.Get(PeerMetadataKey); len(p) == 1 {
		md.Peer = p[0]
	} else {
		ok = false
		return
	}
	if i := rmd.Get(InstanceMetadataKey); len(i) == 1 {
		md.Instance = i[0]
	}
	return
}

func MustGetMetadataFromContext(ctx context.Context) Metadata {
	md, ok := GetMetadataFromContext(ctx)
	if !ok {
		panic("invalid request metadata")
	}
	return md
}

// Metadata identifies the instance issuing a request (Peer) and, optionally,
// the instance it expects to reach (Instance).
type Metadata struct {
	Peer     string
	Instance string
}
