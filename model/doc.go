/*

Package model provides hyper-parameter management shared by latent trainers.

	* cf: matrix factorization recommender for a new user, with TPE hyper-parameter search
	* autoencoder: single hidden layer autoencoder trained with mini-batches and early stopping

*/
package model
