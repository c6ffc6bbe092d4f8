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
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "karabo.Broker"
	CodecName   = "karabo"

	Broker_Check_FullMethodName   = "/karabo.Broker/Check"
	Broker_Call_FullMethodName    = "/karabo.Broker/Call"
	Broker_Publish_FullMethodName = "/karabo.Broker/Publish"
)

// Frame is one serialized message frame as produced by message.EncodeFrame.
type Frame struct {
	Data []byte
}

func NewFrame(data []byte) *Frame {
	return &Frame{Data: data}
}

// Codec moves Frames over gRPC without any further encoding.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("karabo codec: cannot marshal %T", v)
	}
	return f.Data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("karabo codec: cannot unmarshal into %T", v)
	}
	f.Data = append(f.Data[:0], data...)
	return nil
}

func (Codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(Codec{})
}

// BrokerServer is the server API for the karabo.Broker service.
type BrokerServer interface {
	Check(context.Context, *Frame) (*Frame, error)
	Call(context.Context, *Frame) (*Frame, error)
	Publish(Broker_PublishServer) error
	mustEmbedUnimplementedBrokerServer()
}

type UnimplementedBrokerServer struct{}

func (UnimplementedBrokerServer) Check(context.Context, *Frame) (*Frame, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Check not implemented")
}

func (UnimplementedBrokerServer) Call(context.Context, *Frame) (*Frame, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Call not implemented")
}

func (UnimplementedBrokerServer) Publish(Broker_PublishServer) error {
	return status.Errorf(codes.Unimplemented, "method Publish not implemented")
}

func (UnimplementedBrokerServer) mustEmbedUnimplementedBrokerServer() {}

func RegisterBrokerServer(s grpc.ServiceRegistrar, srv BrokerServer) {
	s.RegisterService(&Broker_ServiceDesc, srv)
}

type Broker_PublishServer interface {
	SendAndClose(*Frame) error
	Recv() (*Frame, error)
	grpc.ServerStream
}

type brokerPublishServer struct {
	grpc.ServerStream
}

func (x *brokerPublishServer) SendAndClose(m *Frame) error {
	return x.ServerStream.SendMsg(m)
}

func (x *brokerPublishServer) Recv() (*Frame, error) {
	m := new(Frame)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func brokerCheckHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Frame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BrokerServer).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Broker_Check_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BrokerServer).Check(ctx, req.(*Frame))
	}
	return interceptor(ctx, in, info, handler)
}

func brokerCallHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Frame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BrokerServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Broker_Call_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BrokerServer).Call(ctx, req.(*Frame))
	}
	return interceptor(ctx, in, info, handler)
}

func brokerPublishHandler(srv any, stream grpc.ServerStream) error {
	return srv.(BrokerServer).Publish(&brokerPublishServer{stream})
}

var Broker_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BrokerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Check",
			Handler:    brokerCheckHandler,
		},
		{
			MethodName: "Call",
			Handler:    brokerCallHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Publish",
			Handler:       brokerPublishHandler,
			ClientStreams: true,
		},
	},
}

// BrokerClient is the client API for the karabo.Broker service.
type BrokerClient interface {
	Check(ctx context.Context, in *Frame, opts ...grpc.CallOption) (*Frame, error)
	Call(ctx context.Context, in *Frame, opts ...grpc.CallOption) (*Frame, error)
	Publish(ctx context.Context, opts ...grpc.CallOption) (Broker_PublishClient, error)
}

type brokerClient struct {
	cc grpc.ClientConnInterface
}

func NewBrokerClient(cc grpc.ClientConnInterface) BrokerClient {
	return &brokerClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *brokerClient) Check(ctx context.Context, in *Frame, opts ...grpc.CallOption) (*Frame, error) {
	out := new(Frame)
	if err := c.cc.Invoke(ctx, Broker_Check_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *brokerClient) Call(ctx context.Context, in *Frame, opts ...grpc.CallOption) (*Frame, error) {
	out := new(Frame)
	if err := c.cc.Invoke(ctx, Broker_Call_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *brokerClient) Publish(ctx context.Context, opts ...grpc.CallOption) (Broker_PublishClient, error) {
	stream, err := c.cc.NewStream(ctx, &Broker_ServiceDesc.Streams[0], Broker_Publish_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &brokerPublishClient{stream}, nil
}

type Broker_PublishClient interface {
	Send(*Frame) error
	CloseAndRecv() (*Frame, error)
	grpc.ClientStream
}

type brokerPublishClient struct {
	grpc.ClientStream
}

func (x *brokerPublishClient) Send(m *Frame) error {
	return x.ClientStream.SendMsg(m)
}

func (x *brokerPublishClient) CloseAndRecv() (*Frame, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(Frame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
