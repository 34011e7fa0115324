// Package delivery ships [codes.Sender] implementations for verification
// codes: SendGrid for email, Twilio or AWS SNS for SMS, and a logrus sender
// for development. [Router] picks the sender by the delivery channel.
//
// # Architecture boundaries
//
// Senders wrap narrow client interfaces ([EmailClient], [MessageCreator],
// [Publisher]) that the vendor SDK clients satisfy, so tests run without
// network access. Message text comes from [Templates].
//
// # What this package must NOT do
//
//   - Store, reuse or generate codes. That is the codes package's job.
//   - Retry. A failed delivery is reported once; the code stays valid and a
//     resend delivers it again.
//   - Log the code, except through LogSender with RevealCode set.
package delivery
